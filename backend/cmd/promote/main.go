// Command promote moves students whose age has outgrown their band worksheet
// into the next band, against a Google spreadsheet or a local .xlsx file.
package main

func main() {
	Execute()
}
