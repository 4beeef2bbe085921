package health

import (
	"math"
	"strings"
)

// BMI分类阈值
const (
	bmiUnderweight = 18.5
	bmiNormal      = 25.0
	bmiOverweight  = 30.0
)

// BMI分类
const (
	CategoryUnderweight = "Underweight"
	CategoryNormal      = "Normal"
	CategoryOverweight  = "Overweight"
	CategoryObese       = "Obese"
)

// metPerMinute 各运动在70kg体重下的每分钟消耗（kcal/min）
var metPerMinute = map[string]float64{
	"walking":       3.8,
	"running":       9.8,
	"cycling":       7.5,
	"swimming":      8.3,
	"yoga":          2.5,
	"weightlifting": 5.0,
	"hiit":          10.0,
	"dancing":       5.5,
	"hiking":        6.0,
	"rowing":        7.0,
	"basketball":    6.5,
	"football":      7.0,
	"badminton":     4.5,
	"skipping":      11.0,
}

// BMI 计算体质指数，身高单位cm，体重单位kg
func BMI(weightKG, heightCM float64) float64 {
	if heightCM <= 0 {
		return 0
	}
	heightM := heightCM / 100
	return weightKG / (heightM * heightM)
}

// ClassifyBMI 按阈值分类：<18.5 偏瘦；[18.5,25) 正常；[25,30) 超重；>=30 肥胖
func ClassifyBMI(bmi float64) string {
	switch {
	case bmi < bmiUnderweight:
		return CategoryUnderweight
	case bmi < bmiNormal:
		return CategoryNormal
	case bmi < bmiOverweight:
		return CategoryOverweight
	default:
		return CategoryObese
	}
}

// IsHealthyBMI 正常区间视为健康
func IsHealthyBMI(bmi float64) bool {
	return bmi >= bmiUnderweight && bmi < bmiNormal
}

// EstimateCalories 估算消耗：met_per_minute(activity) × minutes × (weight/70)，四舍五入。
// 未知运动返回 ok=false，不做本地估算。
func EstimateCalories(activity string, minutes int, weightKG float64) (int, bool) {
	rate, ok := metPerMinute[strings.ToLower(strings.TrimSpace(activity))]
	if !ok {
		return 0, false
	}
	if minutes <= 0 || weightKG <= 0 {
		return 0, true
	}
	return int(math.Round(rate * float64(minutes) * (weightKG / 70))), true
}

// KnownActivities 返回支持本地估算的运动名列表
func KnownActivities() []string {
	names := make([]string, 0, len(metPerMinute))
	for name := range metPerMinute {
		names = append(names, name)
	}
	return names
}

// GoalProgress 计算当日目标完成度百分比，封顶100
func GoalProgress(caloriesOut, dailyTarget int) float64 {
	if dailyTarget <= 0 {
		return 0
	}
	progress := float64(caloriesOut) / float64(dailyTarget) * 100
	if progress > 100 {
		progress = 100
	}
	return math.Round(progress*100) / 100
}
