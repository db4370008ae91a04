// Package constants holds names shared by the CLI, the scheduler and the engine.
package constants

// DefaultEnvPath is the default path to the .env file
const DefaultEnvPath = "./.env"

// DefaultConfigPath is the default path to the config.toml file
const DefaultConfigPath = "./config.toml"

// ScheduleJobGroup is the job group holding one recurring job per schedule.
const ScheduleJobGroup = "schedules"

// SystemJobGroup holds housekeeping jobs such as delivery compaction.
const SystemJobGroup = "system"

// DeliveriesFile is the JSON Lines file with pending deliveries.
const DeliveriesFile = "deliveries.jsonl"

// TaskTypeDelivery is the worker task type for quote deliveries.
const TaskTypeDelivery = "delivery"

// CompactionSpec is the cron spec of the executed-delivery compaction job.
const CompactionSpec = "@daily"
