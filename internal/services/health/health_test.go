package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBMI(t *testing.T) {
	// 70kg / 1.75m² = 22.86
	bmi := BMI(70, 175)
	assert.InDelta(t, 22.86, bmi, 0.01)

	assert.Equal(t, 0.0, BMI(70, 0))
}

func TestClassifyBMI(t *testing.T) {
	tests := []struct {
		bmi      float64
		category string
	}{
		{16.0, CategoryUnderweight},
		{18.4, CategoryUnderweight},
		{18.5, CategoryNormal},
		{22.0, CategoryNormal},
		{24.9, CategoryNormal},
		{25.0, CategoryOverweight},
		{29.9, CategoryOverweight},
		{30.0, CategoryObese},
		{42.0, CategoryObese},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.category, ClassifyBMI(tt.bmi), "bmi=%v", tt.bmi)
	}
}

func TestIsHealthyBMI(t *testing.T) {
	assert.False(t, IsHealthyBMI(18.4))
	assert.True(t, IsHealthyBMI(18.5))
	assert.True(t, IsHealthyBMI(24.9))
	assert.False(t, IsHealthyBMI(25.0))
}

func TestEstimateCalories(t *testing.T) {
	// running: 9.8 kcal/min，70kg基准
	cal, ok := EstimateCalories("running", 30, 70)
	assert.True(t, ok)
	assert.Equal(t, 294, cal)

	// 体重按比例缩放：9.8 × 30 × (105/70) = 441
	cal, ok = EstimateCalories("running", 30, 105)
	assert.True(t, ok)
	assert.Equal(t, 441, cal)

	// 四舍五入：3.8 × 7 × (65/70) = 24.7 → 25
	cal, ok = EstimateCalories("walking", 7, 65)
	assert.True(t, ok)
	assert.Equal(t, 25, cal)

	// 名称大小写与空白不敏感
	cal, ok = EstimateCalories("  Running ", 30, 70)
	assert.True(t, ok)
	assert.Equal(t, 294, cal)

	// 未知运动不做本地估算
	_, ok = EstimateCalories("underwater-basket-weaving", 30, 70)
	assert.False(t, ok)
}

func TestGoalProgress(t *testing.T) {
	assert.Equal(t, 50.0, GoalProgress(250, 500))
	assert.Equal(t, 100.0, GoalProgress(900, 500))
	assert.Equal(t, 0.0, GoalProgress(100, 0))
	assert.Equal(t, 33.33, GoalProgress(100, 300))
}
