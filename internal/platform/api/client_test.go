package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bczgroup/tracker/internal/platform/api"
	"github.com/bczgroup/tracker/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const groupDetailBody = `{
  "code": 1,
  "data": {
    "todayDate": "2024-03-04",
    "groupInfo": {
      "id": 101, "name": "Readers", "shareKey": "abc", "introduction": "hi",
      "memberCount": 2, "countLimit": 50, "todayDakaCount": 0, "finishingRate": 0.5,
      "createdTime": 1700000000, "rank": 3, "type": 1, "avatar": "a.png",
      "avatarFrame": {"frame": "f.png"}, "notice": null
    },
    "members": [
      {"uniqueId": 1, "nickname": "al", "completedTime": 1709510400, "leader": true,
       "todayWordCount": 30, "completedTimes": 12, "durationDays": 40, "bookName": "B1"},
      {"uniqueId": "2", "nickname": "bo", "completedTime": 0, "todayStudyCheat": true}
    ]
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, retries uint64) *api.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return api.NewClient(api.Options{
		MainToken: "main",
		Timeout:   time.Second,
		Retry:     utils.GetRequestRetryOptions(retries, time.Millisecond, time.Millisecond),
		Endpoints: api.Endpoints{
			GroupInfo:   srv.URL + "/group/information",
			OwnGroups:   srv.URL + "/group/own_groups",
			UserDetails: srv.URL + "/api/deskmate/personal_details",
			HomePage:    srv.URL + "/api/deskmate/home_page",
		},
	}, zap.NewNop())
}

func TestGetGroupInfo(t *testing.T) {
	t.Parallel()

	var cookie, shareKey string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		cookie = r.Header.Get("Cookie")
		shareKey = r.URL.Query().Get("shareKey")
		_, _ = w.Write([]byte(groupDetailBody))
	}, 0)

	detail, err := client.GetGroupInfo(context.Background(), "abc", "")
	require.NoError(t, err)

	assert.Equal(t, `access_token="main"`, cookie)
	assert.Equal(t, "abc", shareKey)
	assert.Equal(t, api.FlexInt(101), detail.GroupInfo.ID)
	assert.Equal(t, api.FlexString("1700000000"), detail.GroupInfo.CreatedTime)
	assert.Equal(t, "f.png", detail.GroupInfo.Frame())
	assert.Empty(t, detail.GroupInfo.Notice)
	require.Len(t, detail.Members, 2)
	assert.Equal(t, api.FlexInt(2), detail.Members[1].UniqueID)
	assert.True(t, detail.Members[1].TodayStudyCheat)
	assert.True(t, detail.Members[0].Leader)

	_, err = client.GetGroupInfo(context.Background(), "abc", "secondary")
	require.NoError(t, err)
	assert.Equal(t, `access_token="secondary"`, cookie)
}

func TestClientErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		calls   int32
	}{
		{name: "api code", status: http.StatusOK, body: `{"code":0,"message":"no group"}`, wantErr: api.ErrAPI, calls: 1},
		{name: "malformed json", status: http.StatusOK, body: `{"code":`, wantErr: api.ErrMalformedPayload, calls: 1},
		{name: "missing data", status: http.StatusOK, body: `{"code":1}`, wantErr: api.ErrMalformedPayload, calls: 1},
		{name: "client status", status: http.StatusForbidden, body: `denied`, wantErr: api.ErrAPI, calls: 1},
		{name: "server status is retried", status: http.StatusBadGateway, body: `oops`, wantErr: api.ErrTransport, calls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32

			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, 2)

			_, err := client.GetUserInfo(context.Background(), "7")
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.calls, calls.Load())

			var respErr *api.ResponseError
			require.ErrorAs(t, err, &respErr)
			assert.Equal(t, tt.body, respErr.Body)
		})
	}
}

func TestGetOwnInfoAndGroups(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/deskmate/home_page":
			_, _ = w.Write([]byte(`{"code":1,"data":{"mine":{"uniqueId":555,"name":"owner"}}}`))
		case "/group/own_groups":
			assert.Equal(t, "555", r.URL.Query().Get("uniqueId"))
			_, _ = w.Write([]byte(`{"code":1,"data":{"list":[{"id":"9","name":"G","shareKey":"k9","createdTime":"2024-01-01"}]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, 0)

	home, err := client.GetOwnInfo(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, api.FlexString("555"), home.Mine.UniqueID)
	assert.Equal(t, "owner", home.Mine.Name)

	groups, err := client.GetUserGroups(context.Background(), "555")
	require.NoError(t, err)
	require.Len(t, groups.List, 1)
	assert.Equal(t, api.FlexInt(9), groups.List[0].ID)
	assert.Equal(t, api.FlexString("2024-01-01"), groups.List[0].CreatedTime)
	assert.Empty(t, groups.List[0].Frame())
}

func TestTransportFailure(t *testing.T) {
	t.Parallel()

	client := api.NewClient(api.Options{
		MainToken: "main",
		Timeout:   100 * time.Millisecond,
		Endpoints: api.Endpoints{HomePage: "http://127.0.0.1:1/home"},
	}, zap.NewNop())

	_, err := client.GetOwnInfo(context.Background(), "")
	require.ErrorIs(t, err, api.ErrTransport)
}

func TestMaxInFlight(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)

		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}

		time.Sleep(10 * time.Millisecond)
		_, _ = w.Write([]byte(groupDetailBody))
	}))
	t.Cleanup(srv.Close)

	client := api.NewClient(api.Options{
		MainToken:   "main",
		Timeout:     time.Second,
		MaxInFlight: 2,
		Endpoints:   api.Endpoints{GroupInfo: srv.URL + "/group/information"},
	}, zap.NewNop())

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.GetGroupInfo(context.Background(), "abc", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}
