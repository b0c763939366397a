package query

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/StreamCatalog/internal/domain"
	"github.com/StreamCatalog/internal/domain/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDoer captures the outgoing request and answers with a canned body.
type recordingDoer struct {
	requests []*http.Request
	status   int
	body     string
	err      error
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	d.requests = append(d.requests, req)
	if d.err != nil {
		return nil, d.err
	}
	return &http.Response{
		StatusCode: d.status,
		Body:       io.NopCloser(strings.NewReader(d.body)),
		Request:    req,
	}, nil
}

// idMapper maps {"id": "..."} to a Stream with that ID.
var idMapper = domain.StreamMapperFunc(func(raw domain.RawStreamRecord) (domain.Stream, error) {
	var rec struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Stream{}, err
	}
	if rec.ID == "" {
		return domain.Stream{}, domain.ErrInvalidRecord
	}
	return domain.Stream{ID: rec.ID}, nil
})

func ids(streams []domain.Stream) []string {
	out := make([]string, 0, len(streams))
	for _, s := range streams {
		out = append(out, s.ID)
	}
	return out
}

func TestGetStreamsQuery_PreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/streams", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"c"},{"id":"a"},{"id":"b"},{"id":"a"}]`))
	}))
	defer server.Close()

	q := GetStreamsQuery(Config{BaseURL: server.URL}, server.Client(), idMapper)

	streams, err := q.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b", "a"}, ids(streams), "no reordering or dedup")
}

func TestGetStreamsQuery_CallsMapperOncePerElementInOrder(t *testing.T) {
	doer := &recordingDoer{status: http.StatusOK, body: `[{"n":1},{"n":2},{"n":3}]`}
	mapper := new(mocks.MockStreamMapper)
	for _, n := range []string{"1", "2", "3"} {
		mapper.On("Map", domain.RawStreamRecord(`{"n":`+n+`}`)).Return(domain.Stream{ID: n}, nil).Once()
	}

	streams, err := GetStreamsQuery(Config{BaseURL: "https://api.example.com"}, doer, mapper).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids(streams))
	mapper.AssertExpectations(t)
}

func TestGetStreamsQuery_EmptyCollection(t *testing.T) {
	doer := &recordingDoer{status: http.StatusOK, body: `[]`}

	streams, err := GetStreamsQuery(Config{BaseURL: "https://api.example.com"}, doer, idMapper).Run(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, streams)
	assert.Empty(t, streams)
}

func TestGetStreamsQuery_KeyIsStable(t *testing.T) {
	a := GetStreamsQuery(Config{BaseURL: "https://a.example.com"}, http.DefaultClient, idMapper)
	b := GetStreamsQuery(Config{BaseURL: "https://b.example.com"}, http.DefaultClient, idMapper)

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "streams", a.Key().String())

	// Mutating the returned key must not leak into the descriptor.
	k := a.Key()
	k[0] = "other"
	assert.Equal(t, StreamsKey, a.Key())
}

func TestGetStreamsQuery_URLConstruction(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"https://api.example.com", "https://api.example.com/streams"},
		{"https://api.example.com/", "https://api.example.com/streams"},
		{"https://api.example.com/v1", "https://api.example.com/v1/streams"},
		{"https://api.example.com/v1/", "https://api.example.com/v1/streams"},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			doer := &recordingDoer{status: http.StatusOK, body: `[]`}
			_, err := GetStreamsQuery(Config{BaseURL: tt.base}, doer, idMapper).Run(context.Background())
			require.NoError(t, err)
			require.Len(t, doer.requests, 1)
			assert.Equal(t, tt.want, doer.requests[0].URL.String())
			assert.Equal(t, http.MethodGet, doer.requests[0].Method)
			assert.Nil(t, doer.requests[0].Body)
		})
	}
}

func TestGetStreamsQuery_MalformedJSON(t *testing.T) {
	doer := &recordingDoer{status: http.StatusOK, body: `not json`}

	streams, err := GetStreamsQuery(Config{BaseURL: "https://api.example.com"}, doer, idMapper).Run(context.Background())
	assert.Nil(t, streams)

	var pe *domain.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestGetStreamsQuery_NotAnArray(t *testing.T) {
	for _, body := range []string{`{"items":[]}`, `null`, `"streams"`} {
		t.Run(body, func(t *testing.T) {
			doer := &recordingDoer{status: http.StatusOK, body: body}

			_, err := GetStreamsQuery(Config{BaseURL: "https://api.example.com"}, doer, idMapper).Run(context.Background())

			var te *domain.TransformError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, -1, te.Index)
			assert.ErrorIs(t, err, domain.ErrNotSequence)
		})
	}
}

func TestGetStreamsQuery_MapperFailureFailsWholeRun(t *testing.T) {
	doer := &recordingDoer{status: http.StatusOK, body: `[{"id":"1"},{"name":"no id"},{"id":"3"}]`}

	streams, err := GetStreamsQuery(Config{BaseURL: "https://api.example.com"}, doer, idMapper).Run(context.Background())
	assert.Nil(t, streams, "no partial result")

	var te *domain.TransformError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1, te.Index)
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)
}

func TestGetStreamsQuery_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`[]`)) // parseable body must still not count as success
	}))
	defer server.Close()

	_, err := GetStreamsQuery(Config{BaseURL: server.URL}, server.Client(), idMapper).Run(context.Background())

	var se *domain.HTTPStatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, server.URL+"/streams", se.URL)
}

func TestGetStreamsQuery_TransportFailure(t *testing.T) {
	dialErr := errors.New("connection refused")
	doer := &recordingDoer{err: dialErr}

	_, err := GetStreamsQuery(Config{BaseURL: "https://api.example.com"}, doer, idMapper).Run(context.Background())

	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, dialErr)
	assert.Equal(t, "https://api.example.com/streams", te.URL)
}

func TestGetStreamsQuery_InvalidBaseURL(t *testing.T) {
	doer := &recordingDoer{status: http.StatusOK, body: `[]`}

	_, err := GetStreamsQuery(Config{BaseURL: "http://[::1"}, doer, idMapper).Run(context.Background())

	var te *domain.TransportError
	assert.ErrorAs(t, err, &te)
	assert.Empty(t, doer.requests)
}

func TestGetStreamsQuery_HonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := GetStreamsQuery(Config{BaseURL: server.URL}, server.Client(), idMapper).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetStreamsQuery_OneRequestPerRun(t *testing.T) {
	doer := &recordingDoer{status: http.StatusOK, body: `[{"id":"1"}]`}
	q := GetStreamsQuery(Config{BaseURL: "https://api.example.com"}, doer, idMapper)

	for i := 0; i < 3; i++ {
		_, err := q.Run(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, doer.requests, 3)
}
