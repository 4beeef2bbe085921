package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ag21o9/bitnbuild-backend/pkg/errors"
)

func setupEventRouter(h *EventHandler, userID uuid.UUID) *gin.Engine {
	r := gin.New()
	r.POST("/events/:id/register", func(c *gin.Context) {
		c.Set("user_id", userID)
		h.RegisterForEvent(c)
	})
	r.DELETE("/events/:id/register", func(c *gin.Context) {
		c.Set("user_id", userID)
		h.CancelRegistration(c)
	})
	return r
}

func eventRows(eventID uuid.UUID, capacity int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "location", "starts_at", "capacity"}).
		AddRow(eventID, "晨跑活动", "滨江公园", time.Now().Add(24*time.Hour), capacity)
}

func TestRegisterForEventNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewEventHandler(db)

	mock.ExpectQuery(`SELECT \* FROM "events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	r := setupEventRouter(h, uuid.New())
	w := performJSON(r, http.MethodPost, "/events/"+uuid.NewString()+"/register", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.ErrEventNotFound, decodeError(t, w).ErrorCode)
}

func TestRegisterForEventDuplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewEventHandler(db)

	eventID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "events"`).
		WillReturnRows(eventRows(eventID, 0))

	// 已存在有效报名
	mock.ExpectQuery(`SELECT count\(\*\) FROM "event_registrations"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	r := setupEventRouter(h, uuid.New())
	w := performJSON(r, http.MethodPost, "/events/"+eventID.String()+"/register", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, errors.ErrAlreadyRegistered, decodeError(t, w).ErrorCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterForEventCapacityFull(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewEventHandler(db)

	eventID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "events"`).
		WillReturnRows(eventRows(eventID, 2))

	// 未重复报名
	mock.ExpectQuery(`SELECT count\(\*\) FROM "event_registrations"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	// 名额已用完
	mock.ExpectQuery(`SELECT count\(\*\) FROM "event_registrations"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	r := setupEventRouter(h, uuid.New())
	w := performJSON(r, http.MethodPost, "/events/"+eventID.String()+"/register", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, errors.ErrEventCapacityFull, decodeError(t, w).ErrorCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterForEventReactivatesCancelled(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewEventHandler(db)

	eventID := uuid.New()
	userID := uuid.New()
	regID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "events"`).
		WillReturnRows(eventRows(eventID, 0))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "event_registrations"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	// 找到已取消的报名记录
	mock.ExpectQuery(`SELECT \* FROM "event_registrations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "user_id", "status"}).
			AddRow(regID, eventID, userID, "cancelled"))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "event_registrations" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// 重新读取恢复后的记录
	mock.ExpectQuery(`SELECT \* FROM "event_registrations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "user_id", "status"}).
			AddRow(regID, eventID, userID, "registered"))

	r := setupEventRouter(h, userID)
	w := performJSON(r, http.MethodPost, "/events/"+eventID.String()+"/register", nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelRegistrationNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewEventHandler(db)

	mock.ExpectQuery(`SELECT \* FROM "event_registrations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	r := setupEventRouter(h, uuid.New())
	w := performJSON(r, http.MethodDelete, "/events/"+uuid.NewString()+"/register", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.ErrResourceNotFound, decodeError(t, w).ErrorCode)
}

func TestCreateEventBadStartsAt(t *testing.T) {
	db, _ := setupMockDB(t)
	h := NewEventHandler(db)

	r := gin.New()
	r.POST("/events", func(c *gin.Context) {
		c.Set("user_id", uuid.New())
		h.CreateEvent(c)
	})

	w := performJSON(r, http.MethodPost, "/events", map[string]interface{}{
		"title":    "晨跑活动",
		"startsAt": "2026-09-01 08:00",
		"capacity": 20,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrInvalidParams, decodeError(t, w).ErrorCode)
}
