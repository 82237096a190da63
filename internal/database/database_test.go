package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestConnectPostgresRejectsEmptyDSN(t *testing.T) {
	_, err := ConnectPostgres("  ")
	require.Error(t, err)
}

func TestConnectPostgresOpensSQLite(t *testing.T) {
	db, err := ConnectPostgres("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())
	require.NoError(t, GormCheck(db)(context.Background()))
	require.NoError(t, sqlDB.Close())
	require.Error(t, GormCheck(db)(context.Background()))
}

func TestConnectRedis(t *testing.T) {
	server := miniredis.RunT(t)

	client, err := ConnectRedis("redis://"+server.Addr(), "arena")
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = ConnectRedis("", "arena")
	require.Error(t, err)

	_, err = ConnectRedis("not a url", "arena")
	require.Error(t, err)
}

func TestRedisCheckFollowsServer(t *testing.T) {
	server := miniredis.RunT(t)

	client, err := ConnectRedis("redis://"+server.Addr(), "arena")
	require.NoError(t, err)
	defer client.Close()

	check := RedisCheck(client)
	require.NoError(t, check(context.Background()))

	server.SetError("LOADING dataset in memory")
	require.Error(t, check(context.Background()))

	require.Error(t, RedisCheck(nil)(context.Background()))
}

func TestNATSCheckWithoutConnection(t *testing.T) {
	require.Error(t, NATSCheck(nil)(context.Background()))
}

func TestConnectNATSRequiresURL(t *testing.T) {
	_, err := ConnectNATS("", "arena", zerolog.Nop())
	require.Error(t, err)
}
