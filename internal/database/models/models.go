package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// JSONMap 自定义JSON类型，用于处理PostgreSQL的JSONB字段
type JSONMap map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("cannot scan non-string value into JSONMap")
	}

	var result JSONMap
	err := json.Unmarshal(bytes, &result)
	*j = result
	return err
}

// User 用户表
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Email        string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	Name         string     `gorm:"type:varchar(100);not null" json:"name"`
	Age          int        `gorm:"not null" json:"age"`
	Gender       string     `gorm:"type:varchar(10);not null" json:"gender"` // male, female, other
	HeightCM     float64    `gorm:"type:numeric(5,1);not null" json:"height_cm"`
	WeightKG     float64    `gorm:"type:numeric(5,1);not null" json:"weight_kg"`
	Goal         string     `gorm:"type:varchar(20);not null;default:'stay_fit'" json:"goal"` // lose_weight, gain_muscle, stay_fit
	Role         string     `gorm:"type:varchar(20);not null;default:'user'" json:"role"`     // admin, user
	Status       string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"` // active, deleted
	LastLoginAt  *time.Time `gorm:"type:timestamptz" json:"last_login_at"`
	CreatedAt    time.Time  `gorm:"type:timestamptz;not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"type:timestamptz;not null;default:now()" json:"updated_at"`
}

// HealthData 每日健康数据快照，(user_id, date)唯一
type HealthData struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_health_user_date,priority:1" json:"user_id"`
	Date             time.Time `gorm:"type:date;not null;uniqueIndex:idx_health_user_date,priority:2" json:"date"`
	Steps            int       `gorm:"not null;default:0" json:"steps"`
	DistanceKM       float64   `gorm:"type:numeric(6,2);not null;default:0" json:"distance_km"`
	CaloriesBurned   int       `gorm:"not null;default:0" json:"calories_burned"`
	SleepHours       float64   `gorm:"type:numeric(4,1);not null;default:0" json:"sleep_hours"`
	WaterML          int       `gorm:"not null;default:0" json:"water_ml"`
	RestingHeartRate int       `gorm:"not null;default:0" json:"resting_heart_rate"`
	WeightKG         float64   `gorm:"type:numeric(5,1)" json:"weight_kg"`
	CreatedAt        time.Time `gorm:"type:timestamptz;not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time `gorm:"type:timestamptz;not null;default:now()" json:"updated_at"`
	User             User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// DailyStat 每日统计汇总，(user_id, date)唯一
type DailyStat struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stat_user_date,priority:1" json:"user_id"`
	Date           time.Time `gorm:"type:date;not null;uniqueIndex:idx_stat_user_date,priority:2" json:"date"`
	WorkoutMinutes int       `gorm:"not null;default:0" json:"workout_minutes"`
	CaloriesIn     int       `gorm:"not null;default:0" json:"calories_in"`
	CaloriesOut    int       `gorm:"not null;default:0" json:"calories_out"`
	GoalProgress   float64   `gorm:"type:numeric(5,2);not null;default:0" json:"goal_progress"` // 百分比
	CreatedAt      time.Time `gorm:"type:timestamptz;not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time `gorm:"type:timestamptz;not null;default:now()" json:"updated_at"`
	User           User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// Activity 运动记录表
type Activity struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string    `gorm:"type:varchar(50);not null;index" json:"name"` // running, cycling...
	Minutes     int       `gorm:"not null" json:"minutes"`
	Calories    int       `gorm:"not null;default:0" json:"calories"`
	Note        string    `gorm:"type:text" json:"note"`
	PerformedAt time.Time `gorm:"type:timestamptz;not null;index" json:"performed_at"`
	CreatedAt   time.Time `gorm:"type:timestamptz;not null;default:now()" json:"created_at"`
	User        User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// MealPlan 餐单表
type MealPlan struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Date      time.Time      `gorm:"type:date;not null;index" json:"date"`
	Title     string         `gorm:"type:varchar(200);not null" json:"title"`
	MealType  string         `gorm:"type:varchar(20);not null;index" json:"meal_type"` // breakfast, lunch, dinner, snack
	Items     JSONMap        `gorm:"type:jsonb" json:"items"`
	Calories  int            `gorm:"not null;default:0" json:"calories"`
	ProteinG  float64        `gorm:"type:numeric(6,1);not null;default:0" json:"protein_g"`
	CarbsG    float64        `gorm:"type:numeric(6,1);not null;default:0" json:"carbs_g"`
	FatG      float64        `gorm:"type:numeric(6,1);not null;default:0" json:"fat_g"`
	Tags      pq.StringArray `gorm:"type:text[]" json:"tags"`
	Source    string         `gorm:"type:varchar(10);not null;default:'manual'" json:"source"` // manual, ai
	CreatedAt time.Time      `gorm:"type:timestamptz;not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"type:timestamptz;not null;default:now()" json:"updated_at"`
	User      User           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// HealthRecord 健康档案记录表
type HealthRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	RecordType  string    `gorm:"type:varchar(50);not null;index" json:"record_type"` // injury, allergy, condition, checkup
	Description string    `gorm:"type:text;not null" json:"description"`
	RecordedAt  time.Time `gorm:"type:timestamptz;not null" json:"recorded_at"`
	CreatedAt   time.Time `gorm:"type:timestamptz;not null;default:now()" json:"created_at"`
	User        User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// WearableData 可穿戴设备同步数据表
type WearableData struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	DeviceType string    `gorm:"type:varchar(50);not null" json:"device_type"` // fitbit, mi_band...
	Payload    JSONMap   `gorm:"type:jsonb;not null" json:"payload"`
	SyncedAt   time.Time `gorm:"type:timestamptz;not null;index" json:"synced_at"`
	CreatedAt  time.Time `gorm:"type:timestamptz;not null;default:now()" json:"created_at"`
	User       User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// Event 健身活动表
type Event struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title       string         `gorm:"type:varchar(200);not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Location    string         `gorm:"type:varchar(200)" json:"location"`
	StartsAt    time.Time      `gorm:"type:timestamptz;not null;index" json:"starts_at"`
	Capacity    int            `gorm:"not null;default:0" json:"capacity"` // 0表示不限
	Tags        pq.StringArray `gorm:"type:text[]" json:"tags"`
	CreatedBy   *uuid.UUID     `gorm:"type:uuid" json:"created_by"`
	CreatedAt   time.Time      `gorm:"type:timestamptz;not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"type:timestamptz;not null;default:now()" json:"updated_at"`
	Creator     *User          `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
}

// EventRegistration 活动报名表，(event_id, user_id)唯一
type EventRegistration struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	EventID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_event_user,priority:1" json:"event_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_event_user,priority:2" json:"user_id"`
	Status    string    `gorm:"type:varchar(20);not null;default:'registered'" json:"status"` // registered, cancelled
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null;default:now()" json:"updated_at"`
	Event     Event     `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"event,omitempty"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// ChatbotInteraction 聊天记录表
type ChatbotInteraction struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	Reply      string    `gorm:"type:text" json:"reply"`
	Model      string    `gorm:"type:varchar(50)" json:"model"`
	TokenCount *int      `gorm:"type:int" json:"token_count"`
	LatencyMs  *int      `gorm:"type:int" json:"latency_ms"`
	Status     string    `gorm:"type:varchar(10);not null;default:'ok';index" json:"status"` // ok, failed
	CreatedAt  time.Time `gorm:"type:timestamptz;not null;default:now();index" json:"created_at"`
	User       User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// BeforeCreate hook for User
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}

// BeforeCreate hook for EventRegistration
func (r *EventRegistration) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
