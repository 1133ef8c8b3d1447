package page

import (
	"fmt"

	util "github.com/bietkhonhungvandi212/minidock/internal/utils"
)

// VirtualPage is one page of a container's address space. Page numbers are
// only meaningful together with their container: C1_P3 and C2_P3 never alias.
type VirtualPage struct {
	Container util.ContainerID `json:"container" msgpack:"container"`
	Number    util.PageNumber  `json:"page" msgpack:"page"`
}

func New(cid util.ContainerID, number util.PageNumber) VirtualPage {
	return VirtualPage{Container: cid, Number: number}
}

func (vp VirtualPage) String() string {
	return fmt.Sprintf("C%d_P%d", vp.Container, vp.Number)
}

// Ptr returns a pointer to a copy of vp, for optional fields.
func (vp VirtualPage) Ptr() *VirtualPage {
	return &vp
}
