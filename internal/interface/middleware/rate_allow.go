package middleware

import (
	"net"
	"slices"

	"github.com/gin-gonic/gin"
)

// AllowPrivateIP bypasses the limit for loopback and private addresses.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		parsed := net.ParseIP(ipFromCtx(c))
		if parsed == nil {
			return false
		}
		return parsed.IsLoopback() || parsed.IsPrivate()
	}
}

// AllowPaths bypasses the limit for the given route paths.
func AllowPaths(paths ...string) AllowFunc {
	return func(c *gin.Context) bool {
		return slices.Contains(paths, normalizePath(c))
	}
}

// AnyOf bypasses when any of fns does.
func AnyOf(fns ...AllowFunc) AllowFunc {
	return func(c *gin.Context) bool {
		for _, f := range fns {
			if f != nil && f(c) {
				return true
			}
		}
		return false
	}
}
