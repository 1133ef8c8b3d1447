package page

import (
	util "github.com/bietkhonhungvandi212/minidock/internal/utils"
)

// Sequence builds the pages of one container in the given order.
func Sequence(cid util.ContainerID, numbers ...util.PageNumber) []VirtualPage {
	pages := make([]VirtualPage, 0, len(numbers))
	for _, n := range numbers {
		pages = append(pages, New(cid, n))
	}
	return pages
}
