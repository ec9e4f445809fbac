// Package toolkits groups the tool sets agents are built from. Each
// subpackage returns a *toolbox.ToolBox whose tools take a JSON object and
// return text.
package toolkits
