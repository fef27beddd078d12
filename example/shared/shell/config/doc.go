// Package config provides database connection configuration for the example
// applications, one constructor per supported driver.
package config
