// Package blog is the demo blog API mounted behind the gate by the goGate
// server command.
//
// Users, articles and view counts live in memory. The handlers implement no
// business rules; they exist so every gate path (login, refresh, logout,
// password change, read fallback, rate limits) can be driven over HTTP.
package blog
