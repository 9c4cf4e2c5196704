/*
Package timeid generates the keys records are stored under. A bucket key
groups records coarsely by calendar day, while a sequence key orders records
inside a bucket by the instant their event occurred, either oldest first or
newest first, without ever colliding inside one process.
*/
package timeid
