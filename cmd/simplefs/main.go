// Command simplefs formats and inspects simplefs volume images.
package main

func main() {
	Execute()
}
