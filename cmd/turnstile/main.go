// Command turnstile runs the demo HTTP/HTTPS server built on the turnstile core.
package main

func main() {
	Execute()
}
