// Package domain contains the core concepts of the md2docx service.
// Keep this package free of transport (HTTP) and infrastructure (Redis/pandoc) concerns.
package domain
