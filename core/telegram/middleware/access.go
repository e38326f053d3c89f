package middleware

import tele "gopkg.in/telebot.v4"

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware ensures that only the admin user can invoke downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.AdminID != 0 && int64(c.Sender().ID) != opts.AdminID {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}

// ModeratorOptions defines the review-team access list.
type ModeratorOptions struct {
	AdminID    int64
	Moderators []int64
	OnReject   tele.HandlerFunc
}

// Allowed reports whether the user may invoke moderation handlers.
func (o ModeratorOptions) Allowed(userID int64) bool {
	if userID == 0 {
		return false
	}
	if userID == o.AdminID {
		return true
	}
	for _, id := range o.Moderators {
		if id == userID {
			return true
		}
	}
	return false
}

// ModeratorOnlyMiddleware restricts downstream handlers to the admin and the
// configured moderators.
func ModeratorOnlyMiddleware(opts ModeratorOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if !opts.Allowed(c.Sender().ID) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
