package domain

// KeyPrefix namespaces every cache and budget key in the KV store.
const KeyPrefix = "clustra:"
