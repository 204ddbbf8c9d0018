package storage

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectURL(t *testing.T) {
	ep := &url.URL{Scheme: "https", Host: "minio.local:9000"}
	got := objectURL(ep, "datasets", "alice/uploads/2024/01/20/abc-q1 sales.csv")
	assert.Equal(t, "https://minio.local:9000/datasets/alice/uploads/2024/01/20/abc-q1%20sales.csv", got)
}
