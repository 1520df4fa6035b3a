package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/student-store/internal/domain/repository"
	"github.com/oksasatya/student-store/pkg/helpers"
)

func TestProductKey(t *testing.T) {
	assert.Equal(t, "product:abc", productKey("abc"))
}

func TestNewProductCache(t *testing.T) {
	rdb := helpers.NewRedisClient("localhost:0", "", 0)
	defer rdb.Close()

	var c repository.ProductCache = NewProductCache(rdb, time.Minute)
	assert.Equal(t, time.Minute, c.(*ProductCache).TTL)
}
