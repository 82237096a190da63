package cloudinary

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestPublicID(t *testing.T) {
	at := time.Unix(1700000000, 0)

	require.Equal(t, "golden-badge-1700000000", PublicID("Golden  Badge!.PNG", at))
	require.Equal(t, "item-1700000000", PublicID("___.jpg", at))
	require.Equal(t, "avatar-1700000000", PublicID("../uploads/avatar.webp", at))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)

	host, err := New(Config{CloudName: "demo", APIKey: "key", APISecret: "secret", Folder: "/gema/arena/"}, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, "gema/arena", host.folder)
}
