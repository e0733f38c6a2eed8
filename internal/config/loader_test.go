package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("PRERENDER_TEST_HOST", "db.internal")

	// 已定义变量取环境值，默认值被忽略
	assert.Equal(t, "host: db.internal", expandEnv("host: ${PRERENDER_TEST_HOST:localhost}"))
	assert.Equal(t, "host: db.internal", expandEnv("host: ${PRERENDER_TEST_HOST}"))

	// 未定义变量取默认值
	assert.Equal(t, "host: localhost", expandEnv("host: ${PRERENDER_TEST_MISSING:localhost}"))

	// 空默认值展开为空串
	assert.Equal(t, "password: ", expandEnv("password: ${PRERENDER_TEST_MISSING:}"))

	// 无默认值且未定义：原样保留
	assert.Equal(t, "host: ${PRERENDER_TEST_MISSING}", expandEnv("host: ${PRERENDER_TEST_MISSING}"))

	// 一行多个占位符
	t.Setenv("PRERENDER_TEST_PORT", "5433")
	assert.Equal(t, "db.internal:5433",
		expandEnv("${PRERENDER_TEST_HOST:x}:${PRERENDER_TEST_PORT:5432}"))
}
