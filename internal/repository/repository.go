// Package repository holds the SQL behind validation run persistence.
package repository
