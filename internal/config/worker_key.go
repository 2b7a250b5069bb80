package config

type WorkerKeyStruct struct {
	ProfileStatsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	ProfileStatsQueue: "profile_stats_queue",
}
