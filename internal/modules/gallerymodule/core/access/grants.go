package access

import (
	"context"

	"github.com/mantonx/gallery/internal/modules/gallerymodule/types"
)

// Runtime permission names for permission-set platforms
const (
	PermReadMediaImages       = "android.permission.READ_MEDIA_IMAGES"
	PermReadMediaVideo        = "android.permission.READ_MEDIA_VIDEO"
	PermReadMediaUserSelected = "android.permission.READ_MEDIA_VISUAL_USER_SELECTED"
	PermReadExternalStorage   = "android.permission.READ_EXTERNAL_STORAGE"
)

// API levels at which the permission model changed
const (
	APILevelGranularMedia = 33
	APILevelUserSelected  = 34
)

// RequiredPermissions lists the permissions to request at apiLevel
func RequiredPermissions(apiLevel int) []string {
	switch {
	case apiLevel >= APILevelUserSelected:
		return []string{PermReadMediaImages, PermReadMediaVideo, PermReadMediaUserSelected}
	case apiLevel >= APILevelGranularMedia:
		return []string{PermReadMediaImages, PermReadMediaVideo}
	default:
		return []string{PermReadExternalStorage}
	}
}

// ResolveGrants maps a set of granted permissions to an access level.
// Full access needs both image and video grants; the user-selected grant
// only counts where the platform supports it.
func ResolveGrants(apiLevel int, granted map[string]bool) types.AccessLevel {
	if apiLevel < APILevelGranularMedia {
		if granted[PermReadExternalStorage] {
			return types.AccessFull
		}
		return types.AccessDenied
	}

	if granted[PermReadMediaImages] && granted[PermReadMediaVideo] {
		return types.AccessFull
	}
	if apiLevel >= APILevelUserSelected && granted[PermReadMediaUserSelected] {
		return types.AccessPartialSelection
	}
	return types.AccessDenied
}

// PermissionSetProvider adapts a permission-set platform to PermissionProvider
type PermissionSetProvider struct {
	APILevel int
	// Granted reports the current grant of one permission
	Granted func(permission string) bool
	// Request shows the system dialog for the given permissions and returns
	// once the user has answered
	Request func(ctx context.Context, permissions []string) error
}

// Status resolves the current grant set
func (p *PermissionSetProvider) Status() types.GrantState {
	granted := make(map[string]bool)
	for _, perm := range RequiredPermissions(p.APILevel) {
		granted[perm] = p.Granted(perm)
	}

	switch ResolveGrants(p.APILevel, granted) {
	case types.AccessFull:
		return types.GrantGranted
	case types.AccessPartialSelection:
		return types.GrantLimited
	default:
		return types.GrantDenied
	}
}

// Prompt requests every required permission, then re-reads the grant set
func (p *PermissionSetProvider) Prompt(ctx context.Context) (types.GrantState, error) {
	if p.Request != nil {
		if err := p.Request(ctx, RequiredPermissions(p.APILevel)); err != nil {
			return types.GrantDenied, err
		}
	}
	return p.Status(), nil
}

// SupportsUpgrade is true where a partial selection can be widened
func (p *PermissionSetProvider) SupportsUpgrade() bool {
	return p.APILevel >= APILevelUserSelected
}
