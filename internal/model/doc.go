// Package model holds the Go representation of the Northwind entities.
//
// Entities carry attributes only. Relationships live in the graph package's
// link index so that inverse maintenance and delete rules have one owner;
// the container exposes them through Related and RelatedOne.
//
// Every entity has an opaque ID assigned by the container on insertion.
// IDs are UUIDv7 strings and are never reused.
package model
