// Package commands contains business operations that modify order state.
// Every command is validated at construction; handlers consult the status state
// machine before the repository performs a compare-and-swap write.
package commands
