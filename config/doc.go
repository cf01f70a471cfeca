// Package config loads application settings.
//
// Settings come from three layers, later ones winning: built-in defaults, an
// optional YAML file, and SESSIONRAG_* environment variables. A .env file can
// seed the environment before loading:
//
//	_ = config.LoadEnvFile(".env")
//	cfg, err := config.Load("sessionrag.yaml")
//
// Recognized variables: SESSIONRAG_DB_PATH, SESSIONRAG_LISTEN,
// SESSIONRAG_TOP_K, SESSIONRAG_VECTOR_WEIGHT, SESSIONRAG_BM25_WEIGHT,
// SESSIONRAG_POOL_FACTOR, SESSIONRAG_EMBEDDING_HOST, SESSIONRAG_GENERATION_HOST,
// SESSIONRAG_EMBEDDING_MODEL, SESSIONRAG_GENERATION_MODEL, SESSIONRAG_API_TOKEN,
// SESSIONRAG_TEMPERATURE, SESSIONRAG_POOL_SIZE, SESSIONRAG_BATCH_SIZE,
// SESSIONRAG_CACHE_ENABLED and SESSIONRAG_CACHE_TTL.
package config
