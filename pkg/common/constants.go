package common

const (
	RedisKeyGenerationLease   = "advisor.research.lease"
	RedisKeyRecommendationRun = "advisor.recommendation.run"

	ResearchReportSchemaVersion = "1.0"
)
