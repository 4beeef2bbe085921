package handlers

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ag21o9/bitnbuild-backend/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupMockDB 基于sqlmock构建GORM连接，SQL用正则匹配
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func setupTestJWTConfig(t *testing.T) {
	t.Helper()
	config.GlobalConfig = &config.Config{
		JWT: config.JWTConfig{
			Secret:    "test-secret-for-unit-tests",
			ExpiresIn: 24,
			RefreshIn: 168,
			Issuer:    "bitnbuild",
		},
	}
}
