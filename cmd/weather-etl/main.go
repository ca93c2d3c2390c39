// Command weather-etl loads current weather for a fixed set of cities into a
// small star schema, optionally on a schedule, and serves the history over HTTP.
package main

func main() {
	Execute()
}
