package ipfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ocean-market/marketd/src/utils/config"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestResolverTestSuite(t *testing.T) {
	suite.Run(t, new(ResolverTestSuite))
}

type ResolverTestSuite struct {
	suite.Suite
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *ResolverTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
}

func (s *ResolverTestSuite) TearDownSuite() {
	s.cancel()
}

func (s *ResolverTestSuite) newResolver(handler http.HandlerFunc) (*Resolver, *httptest.Server) {
	server := httptest.NewServer(handler)
	conf := config.Default()
	conf.Ipfs.GatewayUrl = server.URL
	return NewResolver(conf), server
}

func (s *ResolverTestSuite) TestResolve() {
	resolver, server := s.newResolver(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(s.T(), "/ipfs/Qm-test", r.URL.Path)
		w.Write([]byte(`{"name":"weather data","description":"hourly","dataCID":"Qm-data","timestamp":1700000000000}`))
	})
	defer server.Close()

	document, err := resolver.Resolve(s.ctx, "Qm-test")
	require.NoError(s.T(), err)
	require.Equal(s.T(), "weather data", document.Name)
	require.Equal(s.T(), "Qm-data", document.DataCID)
	require.EqualValues(s.T(), 1700000000000, document.Timestamp)
}

func (s *ResolverTestSuite) TestGatewayError() {
	resolver, server := s.newResolver(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer server.Close()

	_, err := resolver.Resolve(s.ctx, "Qm-test")
	require.Error(s.T(), err)

	var resolutionErr *ResolutionError
	require.ErrorAs(s.T(), err, &resolutionErr)
	require.Equal(s.T(), "Qm-test", resolutionErr.CID)
}

func (s *ResolverTestSuite) TestMalformedDocument() {
	resolver, server := s.newResolver(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	defer server.Close()

	_, err := resolver.Resolve(s.ctx, "Qm-test")
	var resolutionErr *ResolutionError
	require.ErrorAs(s.T(), err, &resolutionErr)
}
