package httpapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/authz"
	"github.com/ifcserve/hub/internal/correlation"
	"github.com/ifcserve/hub/internal/ratelimit"
	"github.com/ifcserve/hub/internal/store"
)

const (
	defaultHealthTimeout = 3 * time.Second
	principalKey         = "principal"
	patTokenPrefix       = "ocpat_"
)

// authenticate resolves the bearer credential on every /api/v1 and
// /oauth/authorize request: an ocpat_-prefixed token is a PAT, anything
// else is treated as a minted JWT access token.
func (d *Deps) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			apierrors.AbortWithApiError(c, apierrors.NewAuthentication("missing bearer token"))
			return
		}

		var p authz.Principal
		if strings.HasPrefix(token, patTokenPrefix) {
			rec, err := d.PAT.Verify(c.Request.Context(), token)
			if err != nil {
				apierrors.AbortWithApiError(c, err)
				return
			}
			p = authz.Principal{UserID: rec.UserID, WorkspaceID: rec.WorkspaceID, Scopes: toScopeSet(rec.Scopes)}
		} else {
			v, err := d.Issuer.Verify(token)
			if err != nil {
				apierrors.AbortWithApiError(c, err)
				return
			}
			p = authz.Principal{UserID: v.UserID, WorkspaceID: v.WorkspaceID, Scopes: toScopeSet(v.Scopes)}
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

func principalFrom(c *gin.Context) authz.Principal {
	v, _ := c.Get(principalKey)
	p, _ := v.(authz.Principal)
	return p
}

func toScopeSet(scopes []string) map[string]struct{} {
	m := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		m[s] = struct{}{}
	}
	return m
}

// rateLimited applies one of the three named upload policies, keyed by the
// caller's workspace+user so limits are enforced per caller rather than
// globally.
func (d *Deps) rateLimited(pick func(*Deps) *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := principalFrom(c)
		key := p.WorkspaceID + ":" + p.UserID
		if err := pick(d).Allow(key); err != nil {
			apierrors.AbortWithApiError(c, err)
			return
		}
		c.Next()
	}
}

func paginationFrom(c *gin.Context) store.Filter {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	return store.Filter{Page: page, PageSize: pageSize}
}
