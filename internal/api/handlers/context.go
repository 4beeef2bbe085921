package handlers

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ag21o9/bitnbuild-backend/internal/constants"
	"github.com/ag21o9/bitnbuild-backend/internal/database/models"
	"github.com/ag21o9/bitnbuild-backend/internal/services/ai"
)

// buildUserContext 汇总用户画像，供AI提示词使用
func buildUserContext(db *gorm.DB, userID uuid.UUID) (*ai.UserContext, error) {
	var user models.User
	if err := db.Where("id = ? AND status = ?", userID, constants.UserStatusActive).First(&user).Error; err != nil {
		return nil, err
	}

	uc := &ai.UserContext{
		Name:     user.Name,
		Age:      user.Age,
		Gender:   user.Gender,
		HeightCM: user.HeightCM,
		WeightKG: user.WeightKG,
		Goal:     user.Goal,
	}

	// 最近一天健康数据，没有也不影响
	var latest models.HealthData
	if err := db.Where("user_id = ?", userID).Order("date DESC").First(&latest).Error; err == nil {
		uc.Latest = &latest
	}

	// 健康档案（过敏、伤病等会影响建议内容）
	var records []models.HealthRecord
	if err := db.Where("user_id = ?", userID).Order("recorded_at DESC").Limit(10).Find(&records).Error; err == nil {
		uc.Records = records
	}

	// 从近期餐单聚合饮食偏好标签
	var meals []models.MealPlan
	if err := db.Where("user_id = ?", userID).Order("date DESC").Limit(20).Find(&meals).Error; err == nil {
		seen := make(map[string]bool)
		for _, meal := range meals {
			for _, tag := range meal.Tags {
				if !seen[tag] {
					seen[tag] = true
					uc.MealTags = append(uc.MealTags, tag)
				}
			}
		}
	}

	return uc, nil
}
