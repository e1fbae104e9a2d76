// Package config loads service configuration from environment variables.
//
// Values are parsed into tagged structs with github.com/caarlos0/env/v11. A
// `.env` file in the working directory is read once through
// github.com/joho/godotenv before the first parse; real environment variables
// always win over the file.
//
// Each struct type is parsed at most once per process and served from a cache
// afterwards, so packages can call Load for their own config type without
// coordinating:
//
//	var dbCfg tenantdb.Config
//	if err := config.Load(&dbCfg); err != nil {
//		return err
//	}
package config
