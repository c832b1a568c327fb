package types

// AccessLevel is the grant level for the media-access permission
type AccessLevel int

const (
	// AccessDenied means no store may be queried
	AccessDenied AccessLevel = iota
	// AccessPartialSelection means the user granted a subset of the library.
	// The platform restricts results transparently, so it is enough to query.
	AccessPartialSelection
	// AccessFull means the whole library is readable
	AccessFull
)

// String returns the wire name of the level
func (l AccessLevel) String() string {
	switch l {
	case AccessPartialSelection:
		return "partial"
	case AccessFull:
		return "full"
	default:
		return "denied"
	}
}

// CanQuery reports whether stores may be queried at this level
func (l AccessLevel) CanQuery() bool {
	return l == AccessPartialSelection || l == AccessFull
}

// GrantState is the raw state reported by a platform permission API
type GrantState string

const (
	GrantGranted       GrantState = "granted"
	GrantLimited       GrantState = "limited"
	GrantDenied        GrantState = "denied"
	GrantRestricted    GrantState = "restricted"
	GrantNotDetermined GrantState = "not_determined"
)
