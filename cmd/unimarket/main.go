// Command unimarket is the campus marketplace client.
//
// It keeps a local SQLite cache of listings and a durable queue of pending
// writes, so browsing, wishlisting, ordering, and publishing all work
// offline and replay when connectivity returns.
package main

func main() {
	Execute()
}
