package domain

// KeyPrefix namespaces every key this service writes to the Redis store.
const KeyPrefix = "tablens:"
