package opendata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
	"github.com/0xcro3dile/pulsevents/internal/logging"
)

func newTestClient(url string, pageSize int) *Client {
	return NewClient(Options{
		BaseURL:           url,
		Dataset:           "evenements-publics-openagenda",
		PageSize:          pageSize,
		RequestsPerSecond: 1000,
	}, logging.Discard())
}

// recordJSON renders one feed record; uidJSON is the raw JSON value of the uid field.
func recordJSON(uidJSON, slug, title string) string {
	return fmt.Sprintf(`{"recordid":"r-%s","fields":{"uid":%s,"title_fr":%q,"description_fr":"<p>Entrée <b>libre</b></p>","location_city":"Montpellier","location_address":"Place de la Comédie","daterange_fr":"21 juin 2025","canonicalurl":"https://example.org/%s"}}`,
		slug, uidJSON, title, slug)
}

func TestClient_FetchPagesUntilNHits(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "evenements-publics-openagenda", q.Get("dataset"))
		assert.Equal(t, "Montpellier", q.Get("refine.location_city"))
		assert.Equal(t, "2025", q.Get("refine.firstdate_begin"))
		assert.Equal(t, "2", q.Get("rows"))

		switch start, _ := strconv.Atoi(q.Get("start")); start {
		case 0:
			fmt.Fprintf(w, `{"nhits":3,"records":[%s,%s]}`, recordJSON(`"1"`, "jazz", "Jazz"), recordJSON(`"2"`, "expo", "Expo"))
		case 2:
			fmt.Fprintf(w, `{"nhits":3,"records":[%s]}`, recordJSON("3", "opera", "Opéra"))
		default:
			t.Errorf("unexpected start %d", start)
			fmt.Fprint(w, `{"nhits":3,"records":[]}`)
		}
	}))
	defer server.Close()

	events, err := newTestClient(server.URL, 2).Fetch(context.Background(), ports.FeedQuery{City: "Montpellier", Year: "2025"})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, int32(2), calls.Load())

	first := events[0]
	assert.Equal(t, "1", first.UID)
	assert.Equal(t, "Jazz", first.Title)
	assert.Equal(t, "Entrée libre", first.Description)
	assert.Equal(t, "Montpellier", first.City)
	assert.Equal(t, "Place de la Comédie", first.Address)
	assert.Equal(t, "21 juin 2025", first.DateRangeText)
	assert.Equal(t, "https://example.org/jazz", first.CanonicalURL)

	assert.Equal(t, "3", events[2].UID, "numeric uid should be accepted")
}

func TestClient_StopsOnEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") == "0" {
			fmt.Fprintf(w, `{"records":[%s]}`, recordJSON(`"1"`, "jazz", "Jazz"))
			return
		}
		fmt.Fprint(w, `{"records":[]}`)
	}))
	defer server.Close()

	events, err := newTestClient(server.URL, 1).Fetch(context.Background(), ports.FeedQuery{City: "Montpellier"})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestClient_RecordIDFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") != "0" {
			fmt.Fprint(w, `{"records":[]}`)
			return
		}
		fmt.Fprint(w, `{"records":[{"recordid":"abc","fields":{"uid":null,"title_fr":"Sans uid"}}]}`)
	}))
	defer server.Close()

	events, err := newTestClient(server.URL, 10).Fetch(context.Background(), ports.FeedQuery{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "abc", events[0].UID)
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream down")
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 10).Fetch(context.Background(), ports.FeedQuery{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient("http://127.0.0.1:1", 10).Fetch(ctx, ports.FeedQuery{})
	assert.Error(t, err)
}
