/*
Package command defines the typed inputs of the wizard and the callback grammar
that serialises them for chat buttons.

Callback data is parsed once at the transport boundary; anything that does not match
the grammar is rejected and never reaches the state machine.
*/
package command

import (
	"strconv"
	"strings"
)

// Command is a typed user action.
type Command interface {
	// String serialises the command. Callback commands round-trip through Parse.
	String() string
	isCommand()
}

// PickTemplate selects a template from the search results.
type PickTemplate struct{ ID int64 }

// TemplatePage navigates to a page of search results.
type TemplatePage struct{ Page int }

// NewSearch restarts the search step.
type NewSearch struct{}

// PickValue selects a value for an attribute.
type PickValue struct{ AttributeID, ValueID int64 }

// ValuePage moves the value page cursor of the current attribute by Delta (+1 or -1).
type ValuePage struct{ Delta int }

// Back steps back to the previous attribute.
type Back struct{}

// UseExisting accepts an existing variant matching the combination.
type UseExisting struct{ VariantID int64 }

// ChangeSelections returns from review to attribute selection.
type ChangeSelections struct{}

// Create commits creation of the variant.
type Create struct{}

// Text is free-form text typed by the user.
type Text struct{ Body string }

// Cancel abandons the current flow. It is accepted in every stage.
type Cancel struct{}

func (c PickTemplate) String() string   { return "tpl:" + strconv.FormatInt(c.ID, 10) }
func (c TemplatePage) String() string   { return "tplpage:" + strconv.Itoa(c.Page) }
func (NewSearch) String() string        { return "search:new" }
func (c PickValue) String() string      { return "val:" + strconv.FormatInt(c.AttributeID, 10) + ":" + strconv.FormatInt(c.ValueID, 10) }
func (c UseExisting) String() string    { return "use:" + strconv.FormatInt(c.VariantID, 10) }
func (Back) String() string             { return "attr:back" }
func (ChangeSelections) String() string { return "change:attrs" }
func (Create) String() string           { return "create:new" }
func (c Text) String() string           { return c.Body }
func (Cancel) String() string           { return "/cancel" }

func (c ValuePage) String() string {
	if c.Delta < 0 {
		return "attrpage:-1"
	}
	return "attrpage:+1"
}

func (PickTemplate) isCommand()     {}
func (TemplatePage) isCommand()     {}
func (NewSearch) isCommand()        {}
func (PickValue) isCommand()        {}
func (ValuePage) isCommand()        {}
func (Back) isCommand()             {}
func (UseExisting) isCommand()      {}
func (ChangeSelections) isCommand() {}
func (Create) isCommand()           {}
func (Text) isCommand()             {}
func (Cancel) isCommand()           {}

// Parse turns callback data into a Command. It returns false for anything outside
// the grammar.
func Parse(data string) (Command, bool) {
	switch data {
	case "search:new":
		return NewSearch{}, true
	case "attr:back":
		return Back{}, true
	case "change:attrs":
		return ChangeSelections{}, true
	case "create:new":
		return Create{}, true
	case "attrpage:+1":
		return ValuePage{Delta: 1}, true
	case "attrpage:-1":
		return ValuePage{Delta: -1}, true
	}

	head, rest, ok := strings.Cut(data, ":")
	if !ok {
		return nil, false
	}
	switch head {
	case "tpl":
		id, ok := parseID(rest)
		if !ok {
			return nil, false
		}
		return PickTemplate{ID: id}, true
	case "tplpage":
		if strings.HasPrefix(rest, "+") {
			return nil, false
		}
		page, err := strconv.Atoi(rest)
		if err != nil {
			return nil, false
		}
		return TemplatePage{Page: page}, true
	case "use":
		id, ok := parseID(rest)
		if !ok {
			return nil, false
		}
		return UseExisting{VariantID: id}, true
	case "val":
		attr, val, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, false
		}
		attrID, ok := parseID(attr)
		if !ok {
			return nil, false
		}
		valID, ok := parseID(val)
		if !ok {
			return nil, false
		}
		return PickValue{AttributeID: attrID, ValueID: valID}, true
	}
	return nil, false
}

// parseID accepts unsigned decimal ids only.
func parseID(s string) (int64, bool) {
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
