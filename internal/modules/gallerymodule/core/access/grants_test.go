package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantonx/gallery/internal/modules/gallerymodule/types"
)

func TestRequiredPermissions(t *testing.T) {
	assert.Equal(t, []string{PermReadExternalStorage}, RequiredPermissions(29))
	assert.Equal(t, []string{PermReadMediaImages, PermReadMediaVideo}, RequiredPermissions(33))
	assert.Len(t, RequiredPermissions(34), 3)
}

func TestResolveGrants(t *testing.T) {
	tests := []struct {
		name     string
		apiLevel int
		granted  map[string]bool
		want     types.AccessLevel
	}{
		{"legacy granted", 30, map[string]bool{PermReadExternalStorage: true}, types.AccessFull},
		{"legacy denied", 30, map[string]bool{}, types.AccessDenied},
		{"granular both", 33, map[string]bool{PermReadMediaImages: true, PermReadMediaVideo: true}, types.AccessFull},
		{"granular images only", 33, map[string]bool{PermReadMediaImages: true}, types.AccessDenied},
		{"selected ignored before 34", 33, map[string]bool{PermReadMediaUserSelected: true}, types.AccessDenied},
		{"selected on 34", 34, map[string]bool{PermReadMediaUserSelected: true}, types.AccessPartialSelection},
		{"full wins over selected", 34, map[string]bool{
			PermReadMediaImages: true, PermReadMediaVideo: true, PermReadMediaUserSelected: true,
		}, types.AccessFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveGrants(tt.apiLevel, tt.granted))
		})
	}
}

func TestPermissionSetProvider_PromptThroughGate(t *testing.T) {
	granted := map[string]bool{}
	var requested []string

	provider := &PermissionSetProvider{
		APILevel: 34,
		Granted:  func(p string) bool { return granted[p] },
		Request: func(ctx context.Context, perms []string) error {
			requested = perms
			granted[PermReadMediaUserSelected] = true
			return nil
		},
	}

	gate := NewPlatformGate(provider, nil)
	assert.Equal(t, types.AccessDenied, gate.CheckAccess())

	level, err := gate.RequestAccess(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.AccessPartialSelection, level)
	assert.Equal(t, RequiredPermissions(34), requested)
	assert.True(t, provider.SupportsUpgrade())
}
