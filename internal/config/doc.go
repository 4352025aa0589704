// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// A .env file in the working directory, if present, is loaded into the
// environment before expansion so secrets such as DASHBOARD_PASSWORD can
// live outside the YAML file.
package config
