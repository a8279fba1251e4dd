package individual

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hcm/internal/resolver"
	"hcm/pkg/validation"
)

func TestClientResolve(t *testing.T) {
	t.Run("posts search criteria and maps results", func(t *testing.T) {
		var got searchRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/individual/v1/_search", r.URL.Path)
			assert.Equal(t, "3", r.URL.Query().Get("limit"))
			assert.Equal(t, "0", r.URL.Query().Get("offset"))
			assert.Equal(t, "pb.amritsar", r.URL.Query().Get("tenantId"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"Individual":[{"id":"i2","clientReferenceId":"c2"}]}`))
		}))
		defer srv.Close()

		c := New(srv.URL, "/individual/v1/_search")
		refs, err := c.Resolve(context.Background(), resolver.Query{
			TenantID:           "pb.amritsar",
			IDs:                []string{"i1", "i2"},
			ClientReferenceIDs: []string{"c3"},
			Request: validation.RequestContext{
				UserID:    "u1",
				AuthToken: "token",
				Time:      time.UnixMilli(1700000000000),
			},
		})
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, "i2", refs[0].ID)
		assert.Equal(t, "pb.amritsar", refs[0].TenantID)

		assert.Equal(t, []string{"i1", "i2"}, got.Individual.ID)
		assert.Equal(t, []string{"c3"}, got.Individual.ClientReferenceID)
		assert.Equal(t, "token", got.RequestInfo.AuthToken)
		assert.Equal(t, int64(1700000000000), got.RequestInfo.Ts)
		require.NotNil(t, got.RequestInfo.UserInfo)
		assert.Equal(t, "u1", got.RequestInfo.UserInfo.UUID)
	})

	t.Run("client reference ids use their own criterion", func(t *testing.T) {
		req := newSearchRequest(resolver.Query{ClientReferenceIDs: []string{"c1"}})
		assert.Equal(t, []string{"c1"}, req.Individual.ClientReferenceID)
		assert.Empty(t, req.Individual.ID)
	})

	t.Run("unreachable service is a network failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := New(url, "/search").Resolve(context.Background(), resolver.Query{TenantID: "t", IDs: []string{"i1"}})
		require.Error(t, err)
		assert.True(t, resolver.IsNetwork(err))
	})
}

func TestParseSearchResponse(t *testing.T) {
	t.Run("server errors are network class", func(t *testing.T) {
		_, err := parseSearchResponse(http.StatusBadGateway, nil, "t")
		assert.Equal(t, resolver.CategoryNetwork, resolver.CategoryOf(err))
	})

	t.Run("client errors are bad responses", func(t *testing.T) {
		_, err := parseSearchResponse(http.StatusBadRequest, nil, "t")
		assert.Equal(t, resolver.CategoryBadResponse, resolver.CategoryOf(err))
	})

	t.Run("malformed body is a bad response", func(t *testing.T) {
		_, err := parseSearchResponse(http.StatusOK, []byte(`{"Individual":`), "t")
		assert.Equal(t, resolver.CategoryBadResponse, resolver.CategoryOf(err))
	})

	t.Run("empty result", func(t *testing.T) {
		refs, err := parseSearchResponse(http.StatusOK, []byte(`{"Individual":[]}`), "t")
		require.NoError(t, err)
		assert.Empty(t, refs)
	})
}
