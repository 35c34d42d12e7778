package wire

// ClientStatus is reported with StatusUpdate.
type ClientStatus int

const (
	ClientUnknown   ClientStatus = 0
	ClientConnected ClientStatus = 5
	ClientReady     ClientStatus = 10
	ClientPlaying   ClientStatus = 20
	ClientGoal      ClientStatus = 30
)

// ItemsHandling is the bitmask sent in Connect and ConnectUpdate.
type ItemsHandling int

const (
	ItemsHandlingNone              ItemsHandling = 0
	ItemsHandlingOtherWorlds       ItemsHandling = 1 << 0
	ItemsHandlingOwnWorld          ItemsHandling = 1 << 1
	ItemsHandlingStartingInventory ItemsHandling = 1 << 2

	ItemsHandlingAll = ItemsHandlingOtherWorlds | ItemsHandlingOwnWorld | ItemsHandlingStartingInventory
)

// NetworkItemFlags classifies an item. Bits outside the known set are kept
// as-is so newer servers can add classifications.
type NetworkItemFlags uint32

const (
	ItemFlagCommon NetworkItemFlags = 0
	ItemFlagMinor  NetworkItemFlags = 1 << 0 // progression
	ItemFlagMajor  NetworkItemFlags = 1 << 1 // useful
	ItemFlagTrap   NetworkItemFlags = 1 << 2
)

// Has reports whether every bit in f is set.
func (fl NetworkItemFlags) Has(f NetworkItemFlags) bool { return fl&f == f }

// SlotType is the kind of a NetworkSlot.
type SlotType int

const (
	SlotSpectator SlotType = 0
	SlotPlayer    SlotType = 1
	SlotGroup     SlotType = 2
)

// Permission is the value of a room command permission.
type Permission int

const (
	PermissionDisabled    Permission = 0
	PermissionEnabled     Permission = 1
	PermissionGoal        Permission = 2
	PermissionAuto        Permission = 6
	PermissionAutoEnabled Permission = 7
)

// HintStatus is the state of a hint.
type HintStatus int

const (
	HintUnspecified HintStatus = 0
	HintNoPriority  HintStatus = 10
	HintAvoid       HintStatus = 20
	HintPriority    HintStatus = 30
	HintFound       HintStatus = 40
)

// LocationScoutHint controls whether LocationScouts creates hints.
type LocationScoutHint int

const (
	ScoutNoHint  LocationScoutHint = 0
	ScoutHintAll LocationScoutHint = 1
	ScoutHintNew LocationScoutHint = 2
)

// ConnectionRefusedReason is one entry of ConnectionRefused.errors.
type ConnectionRefusedReason string

const (
	RefusedInvalidSlot          ConnectionRefusedReason = "InvalidSlot"
	RefusedInvalidGame          ConnectionRefusedReason = "InvalidGame"
	RefusedIncompatibleVersion  ConnectionRefusedReason = "IncompatibleVersion"
	RefusedInvalidPassword      ConnectionRefusedReason = "InvalidPassword"
	RefusedInvalidItemsHandling ConnectionRefusedReason = "InvalidItemsHandling"
)

// JSONMessagePartType tells a client how to render a JSONMessagePart.
type JSONMessagePartType string

const (
	PartText         JSONMessagePartType = "text"
	PartPlayerID     JSONMessagePartType = "player_id"
	PartPlayerName   JSONMessagePartType = "player_name"
	PartItemID       JSONMessagePartType = "item_id"
	PartItemName     JSONMessagePartType = "item_name"
	PartLocationID   JSONMessagePartType = "location_id"
	PartLocationName JSONMessagePartType = "location_name"
	PartEntranceName JSONMessagePartType = "entrance_name"
	PartHintStatus   JSONMessagePartType = "hint_status"
	PartColor        JSONMessagePartType = "color"
)

// PrintJSONType is the kind of a PrintJSON message.
type PrintJSONType string

const (
	PrintItemSend           PrintJSONType = "ItemSend"
	PrintItemCheat          PrintJSONType = "ItemCheat"
	PrintHint               PrintJSONType = "Hint"
	PrintJoin               PrintJSONType = "Join"
	PrintPart               PrintJSONType = "Part"
	PrintChat               PrintJSONType = "Chat"
	PrintServerChat         PrintJSONType = "ServerChat"
	PrintTutorial           PrintJSONType = "Tutorial"
	PrintTagsChanged        PrintJSONType = "TagsChanged"
	PrintCommandResult      PrintJSONType = "CommandResult"
	PrintAdminCommandResult PrintJSONType = "AdminCommandResult"
	PrintGoal               PrintJSONType = "Goal"
	PrintRelease            PrintJSONType = "Release"
	PrintCollect            PrintJSONType = "Collect"
	PrintCountdown          PrintJSONType = "Countdown"
)

// Operation is a data storage operation name.
type Operation string

const (
	OpReplace    Operation = "replace"
	OpDefault    Operation = "default"
	OpAdd        Operation = "add"
	OpMul        Operation = "mul"
	OpPow        Operation = "pow"
	OpMod        Operation = "mod"
	OpFloor      Operation = "floor"
	OpCeil       Operation = "ceil"
	OpMax        Operation = "max"
	OpMin        Operation = "min"
	OpAnd        Operation = "and"
	OpOr         Operation = "or"
	OpXor        Operation = "xor"
	OpLeftShift  Operation = "left_shift"
	OpRightShift Operation = "right_shift"
	OpRemove     Operation = "remove"
	OpPop        Operation = "pop"
	OpUpdate     Operation = "update"
)

// PacketProblemType is the category reported by InvalidPacket.
type PacketProblemType string

const (
	ProblemCmd       PacketProblemType = "cmd"
	ProblemArguments PacketProblemType = "arguments"
)

// Well-known client tags.
const (
	TagAP        = "AP"
	TagDeathLink = "DeathLink"
	TagHintGame  = "HintGame"
	TagTracker   = "Tracker"
	TagTextOnly  = "TextOnly"
	TagNoText    = "NoText"
)
