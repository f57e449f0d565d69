// Package db provides the embedded CRM schema.
package db

import _ "embed"

// Schema contains idempotent DDL for the customers, products, orders and
// order_products tables.
//
//go:embed migrations/001_schema.sql
var Schema string
