package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Caller is the principal attached to a request after credential
// verification. It is either a User or an Admin.
type Caller interface {
	CallerID() uuid.UUID
	sealed()
}

// User is a storefront customer
type User struct {
	ID uuid.UUID
}

// Admin is a back-office operator
type Admin struct {
	ID   uuid.UUID
	Role string
}

func (u User) CallerID() uuid.UUID  { return u.ID }
func (a Admin) CallerID() uuid.UUID { return a.ID }

func (User) sealed()  {}
func (Admin) sealed() {}

// IsAdmin reports whether c is an Admin
func IsAdmin(c Caller) bool {
	_, ok := c.(Admin)
	return ok
}

const callerKey = "auth.caller"

// SetCaller attaches c to the gin request context
func SetCaller(c *gin.Context, caller Caller) {
	c.Set(callerKey, caller)
}

// CallerFrom returns the caller attached by the auth middleware
func CallerFrom(c *gin.Context) (Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil, false
	}
	caller, ok := v.(Caller)
	return caller, ok
}
