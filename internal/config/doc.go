// Package config resolves the service settings from environment variables and an
// optional .env file (precedence: environment > .env > defaults). Values are bound
// per section, cross-checked, and published once through a Resolver as an immutable
// *Settings that the rest of the application receives by reference.
package config
