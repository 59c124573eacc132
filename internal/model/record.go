// Package model holds the value type, key type, error kinds and
// parameter mask shared by both storage engines.
package model

// Key identifies a Record within an engine. Keys are unique within
// one engine and compared byte-wise.
type Key = string

// Record is the value stored under a Key: a person's last name,
// first name, birth year, city and coin balance.
type Record struct {
	LastName  string
	Name      string
	BirthYear int
	City      string
	Coins     int
}
