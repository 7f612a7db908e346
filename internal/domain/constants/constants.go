// Package constants holds shared configuration vocabulary.
package constants

const (
	// EnvDevelop marks a local development deployment.
	EnvDevelop = "develop"
	// EnvProduction marks a production deployment.
	EnvProduction = "production"

	// PubSubProviderLocal publishes wake events over plain HTTP for development.
	PubSubProviderLocal = "local"
	// PubSubProviderGoogle publishes wake events through Google Pub/Sub.
	PubSubProviderGoogle = "google"
)
