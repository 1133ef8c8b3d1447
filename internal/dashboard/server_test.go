package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/bietkhonhungvandi212/minidock/internal/container"
	"github.com/bietkhonhungvandi212/minidock/internal/paging"
	"github.com/bietkhonhungvandi212/minidock/internal/storage/faultlog"
	"github.com/bietkhonhungvandi212/minidock/internal/storage/frame"
	util "github.com/bietkhonhungvandi212/minidock/internal/utils"
	"github.com/bietkhonhungvandi212/minidock/internal/workload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func newServer(t *testing.T, frames int) (http.Handler, *paging.Engine) {
	t.Helper()
	opts := util.DefaultOptions()
	opts.NumFrames = frames
	eng, err := paging.New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return New(eng, workload.New(eng, 1, nil), nil).Handler(), eng
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(t *testing.T, h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPIContainers(t *testing.T) {
	h, eng := newServer(t, 8)

	t.Run("Create", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/containers", `{"id":5,"memory_kb":16}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var c container.Container
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
		assert.Equal(t, util.ContainerID(5), c.ID)
		assert.Equal(t, 4, c.Pages)
	})

	t.Run("CreateErrors", func(t *testing.T) {
		assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/containers", `{"id":5,"memory_kb":4}`).Code)
		assert.Equal(t, http.StatusInsufficientStorage, do(t, h, http.MethodPost, "/api/containers", `{"memory_kb":400}`).Code)
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/containers", `{"memory_kb":-4}`).Code)
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/containers", `{"mem":4}`).Code)
		assert.Len(t, eng.Containers(), 1)
	})

	t.Run("StartStopList", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodPost, "/api/containers/5/start", "").Code)
		rec := do(t, h, http.MethodGet, "/api/containers", "")
		var cs []container.Container
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cs))
		require.Len(t, cs, 1)
		assert.True(t, cs[0].Running)

		assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodPost, "/api/containers/5/stop", "").Code)
		assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/containers/9/stop", "").Code)
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/containers/x/stop", "").Code)
	})

	t.Run("Delete", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/containers/5", "").Code)
		assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/containers/5", "").Code)
		assert.Empty(t, eng.Containers())
	})
}

func TestAPIAccessAndMemory(t *testing.T) {
	h, eng := newServer(t, 2)
	id, err := eng.CreateContainer(0, 0)
	require.NoError(t, err)

	for _, p := range []int{0, 1} {
		rec := do(t, h, http.MethodPost, "/api/access", fmt.Sprintf(`{"container":1,"page":%d,"policy":"fifo"}`, p))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec := do(t, h, http.MethodPost, "/api/access", `{"container":1,"page":2,"policy":"LRU"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":"FAULT_RESOLVED","frame":0,"evicted":{"container":1,"page":0},"tick":3}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/access", `{"container":7,"page":0,"policy":"FIFO"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/access", `{"container":1,"page":0,"policy":"OPT"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/access", `{"container":1,"page":-2,"policy":"FIFO"}`).Code)

	rec = do(t, h, http.MethodGet, "/api/memory", "")
	var slots []frame.Slot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slots))
	require.Len(t, slots, 2)
	assert.Equal(t, util.PageNumber(2), slots[0].Page.Number)
	assert.Equal(t, id, slots[1].Page.Container)

	rec = do(t, h, http.MethodGet, "/api/stats", "")
	var st map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.EqualValues(t, 3, st["faults"])
	assert.EqualValues(t, 0, st["hit_ratio"])
}

func TestAPIFaults(t *testing.T) {
	h, eng := newServer(t, 1)
	id, _ := eng.CreateContainer(0, 0)
	for p := range 3 {
		_, err := eng.Access(id, util.PageNumber(p), "FIFO")
		require.NoError(t, err)
	}

	t.Run("DefaultJSON", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/faults", "")
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var events []faultlog.Event
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
		assert.Len(t, events, 3)
	})

	t.Run("CSV", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/faults?format=csv", "")
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Equal(t, 4, strings.Count(rec.Body.String(), "\n"))
	})

	t.Run("MsgPack", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/faults?format=msgpack", "")
		var events []faultlog.Event
		require.NoError(t, msgpack.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&events))
		assert.Len(t, events, 3)
	})

	t.Run("Unknown", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/faults?format=xml", "").Code)
	})
}

func TestAPISimulate(t *testing.T) {
	h, eng := newServer(t, 4)
	id, err := eng.CreateContainer(0, 8)
	require.NoError(t, err)

	rec := do(t, h, http.MethodPost, "/api/containers/1/simulate", `{"policy":"LRU","accesses":10,"max_page":6}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report workload.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, id, report.Container)
	assert.Len(t, report.Pages, 10)
	assert.Equal(t, uint64(10), eng.Stats().Accesses)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/containers/3/simulate", `{"policy":"LRU","accesses":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/containers/1/simulate", `{"policy":"X","accesses":1}`).Code)
}

func TestDashboardForms(t *testing.T) {
	h, eng := newServer(t, 4)

	rec := postForm(t, h, "/create", url.Values{"container_id": {""}, "memory_kb": {"8"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	require.Len(t, eng.Containers(), 1)

	rec = postForm(t, h, "/allocate", url.Values{"container_id": {"1"}, "page_number": {"3"}, "algorithm": {"LRU"}})
	assert.Equal(t, "/", rec.Header().Get("Location"))
	res, _ := eng.Resident(1)
	assert.Equal(t, []util.PageNumber{0, 1, 3}, res)

	rec = postForm(t, h, "/create", url.Values{"memory_kb": {"400"}})
	assert.Contains(t, rec.Header().Get("Location"), "/?error=")

	rec = postForm(t, h, "/allocate", url.Values{"container_id": {"1"}, "page_number": {"x"}, "algorithm": {"LRU"}})
	assert.Contains(t, rec.Header().Get("Location"), "/?error=")

	do(t, h, http.MethodGet, "/start/1", "")
	c, _ := eng.Container(1)
	assert.True(t, c.Running)
	do(t, h, http.MethodGet, "/stop/1", "")
	c, _ = eng.Container(1)
	assert.False(t, c.Running)

	rec = do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "[2] C1_P3")
	assert.Contains(t, body, "[3] Free")
	assert.Contains(t, body, "<option>FIFO</option>")

	rec = do(t, h, http.MethodGet, "/terminate/1", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, eng.Containers())

	rec = do(t, h, http.MethodGet, "/?error=boom", "")
	assert.Contains(t, rec.Body.String(), `<p class="error">boom</p>`)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/nope", "").Code)
}
