package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

type ConfigTestSuite struct {
	suite.Suite
}

func (s *ConfigTestSuite) TestDefaults() {
	config := Default()
	require.NotNil(s.T(), config)
	require.Equal(s.T(), ":7777", config.RESTListenAddress)
	require.Equal(s.T(), 30*time.Second, config.StopTimeout)
	require.Equal(s.T(), "ws://127.0.0.1:8546", config.Contract.RpcUrl)
	require.Equal(s.T(), 3*time.Minute, config.Contract.ConfirmationTimeout)
	require.Equal(s.T(), 15*time.Minute, config.Catalog.MetadataCacheTtl)
	require.NotZero(s.T(), config.Catalog.EventChannelSize)
	require.NotZero(s.T(), config.Catalog.ReloadWorkers)
	require.NotZero(s.T(), config.Orchestrator.RefreshTimeout)
}

func (s *ConfigTestSuite) TestEnvOverride() {
	s.T().Setenv("MARKETD_REST_LISTEN_ADDRESS", ":9999")
	s.T().Setenv("MARKETD_CONTRACT_RPC_URL", "ws://10.0.0.1:8546")
	s.T().Setenv("MARKETD_CATALOG_MAX_STALE_DURATION", "2m")

	config, err := Load("")
	require.NoError(s.T(), err)
	require.Equal(s.T(), ":9999", config.RESTListenAddress)
	require.Equal(s.T(), "ws://10.0.0.1:8546", config.Contract.RpcUrl)
	require.Equal(s.T(), 2*time.Minute, config.Catalog.MaxStaleDuration)
}

func (s *ConfigTestSuite) TestLoadFromFile() {
	file, err := os.CreateTemp(s.T().TempDir(), "marketd-*.json")
	require.NoError(s.T(), err)

	_, err = file.WriteString(`{
		"RESTListenAddress": ":8080",
		"Contract": {"Address": "0x1111111111111111111111111111111111111111", "ChainId": 1337}
	}`)
	require.NoError(s.T(), err)
	require.NoError(s.T(), file.Close())

	config, err := Load(file.Name())
	require.NoError(s.T(), err)
	require.Equal(s.T(), ":8080", config.RESTListenAddress)
	require.Equal(s.T(), "0x1111111111111111111111111111111111111111", config.Contract.Address)
	require.EqualValues(s.T(), 1337, config.Contract.ChainId)
}
