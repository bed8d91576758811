package common

import "context"

type ctxKey string

const staffKey ctxKey = "auth/staff"

// Staff identifies an authenticated park staff member.
type Staff struct {
	Username string
	Role     string
}

// WithStaff stores the authenticated staff member on ctx.
func WithStaff(ctx context.Context, s Staff) context.Context {
	return context.WithValue(ctx, staffKey, s)
}

// StaffFrom extracts the authenticated staff member from ctx if present.
func StaffFrom(ctx context.Context) (Staff, bool) {
	s, ok := ctx.Value(staffKey).(Staff)
	return s, ok
}
