package auth

import "github.com/gin-gonic/gin"

const (
	ctxUserID = "userID"
	ctxRole   = "userRole"
)

// Role is the coarse role the identity provider assigns to a user.
type Role string

const (
	RoleClient       Role = "client"
	RoleProfessional Role = "professional"
	RoleAdmin        Role = "admin"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role Role
}

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// GetActor returns the authenticated actor; ok is false when the request was
// not authenticated.
func GetActor(c *gin.Context) (Actor, bool) {
	id := c.GetString(ctxUserID)
	if id == "" {
		return Actor{}, false
	}
	return Actor{ID: id, Role: Role(c.GetString(ctxRole))}, true
}

// SetActor stores the actor on the request context.
func SetActor(c *gin.Context, actor Actor) {
	c.Set(ctxUserID, actor.ID)
	c.Set(ctxRole, string(actor.Role))
}
