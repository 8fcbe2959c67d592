package utils

import (
	"math"
	"time"
)

type RankConfig struct {
	Gravity        float64 // 时间重力
	WeightComment  float64
	WeightUpvote   float64
	WeightDownvote float64
	WeightView     float64
	ScaleFactor    float64 // 放大系数
}

var DefaultConfig = RankConfig{
	Gravity:        1.5,
	WeightComment:  2.0,
	WeightUpvote:   1.0,
	WeightDownvote: 1.5,
	WeightView:     0.01,
	ScaleFactor:    100.0,
}

// CalculateScore returns the hot score of a post: log-smoothed weighted engagement divided
// by a time decay.
func CalculateScore(cfg RankConfig, age time.Duration, up, down, views, comments int) float64 {
	hours := age.Hours()
	if hours < 0 {
		hours = 0
	}

	weightedSum := float64(up)*cfg.WeightUpvote +
		float64(comments)*cfg.WeightComment +
		float64(views)*cfg.WeightView -
		float64(down)*cfg.WeightDownvote

	if weightedSum < 0 {
		weightedSum = 0
	}

	// log10(sum + 1) -> sum=0 时结果为 0
	numerator := math.Log10(weightedSum+1) * cfg.ScaleFactor
	decay := math.Pow(hours+2, cfg.Gravity)

	return numerator / decay
}
