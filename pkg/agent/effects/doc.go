// Package effects holds agent.Effect implementations that steer the tool loop
// between iterations.
package effects
