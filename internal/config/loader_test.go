package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_WRITER_HOST", "milvus.internal")

	assert.Equal(t, "milvus.internal", expandEnv("${TEST_WRITER_HOST}"))
	assert.Equal(t, "milvus.internal", expandEnv("${TEST_WRITER_HOST:localhost}"))
}

func TestExpandEnvDefault(t *testing.T) {
	assert.Equal(t, "localhost", expandEnv("${TEST_WRITER_ABSENT:localhost}"))
	assert.Equal(t, "host: localhost:19530", expandEnv("host: ${TEST_WRITER_ABSENT:localhost:19530}"))
	// 未定义且无默认值时保留原样，便于发现缺失的变量
	assert.Equal(t, "${TEST_WRITER_ABSENT}", expandEnv("${TEST_WRITER_ABSENT}"))
}

func TestExpandEnvPassthrough(t *testing.T) {
	assert.Equal(t, "plain text", expandEnv("plain text"))
}
