package logi

import "fmt"

// EngineError is a fatal invariant violation: the computation cannot be
// retried and the machine state at the point of the violation is carried for
// the attached debugger. Logical failure (exhaustion of alternatives) is not
// an error; it is reported through Status.
type EngineError interface {
	error
	engineError()
	// Registers returns the register file at the point of the violation.
	Registers() Registers
}

type engineErr struct {
	regs Registers
}

func (engineErr) engineError() {}

func (e engineErr) Registers() Registers { return e.regs }

type notReachedError struct {
	engineErr
	pc CodeAddr
}

func (err *notReachedError) Error() string {
	return fmt.Sprintf("reached not_reached at %s: %s", err.pc, err.regs)
}

type stackOverflowError struct {
	engineErr
	region string
	limit  int
}

func (err *stackOverflowError) Error() string {
	return fmt.Sprintf("%s overflow (limit %d): %s", err.region, err.limit, err.regs)
}

type heapOverflowError struct {
	engineErr
	limit int
}

func (err *heapOverflowError) Error() string {
	return fmt.Sprintf("heap exhausted (limit %d cells): %s", err.limit, err.regs)
}

type badAddressError struct {
	engineErr
	pc CodeAddr
}

func (err *badAddressError) Error() string {
	return fmt.Sprintf("jump to invalid code address %s: %s", err.pc, err.regs)
}

type noFrameError struct {
	engineErr
	op opcode
}

func (err *noFrameError) Error() string {
	return fmt.Sprintf("%s executed with no live frame: %s", err.op, err.regs)
}

type noChoicepointError struct {
	engineErr
	op opcode
}

func (err *noChoicepointError) Error() string {
	return fmt.Sprintf("%s executed with no live choicepoint: %s", err.op, err.regs)
}

type noSlotStorageError struct {
	engineErr
	slot Slot
}

func (err *noSlotStorageError) Error() string {
	kind := "environment frame"
	if err.slot.Framevar {
		kind = "choicepoint framevars"
	}
	return fmt.Sprintf("no live %s for slot %s: %s", kind, err.slot, err.regs)
}

type badSlotError struct {
	engineErr
	slot Slot
}

func (err *badSlotError) Error() string {
	return fmt.Sprintf("slot %s out of range: %s", err.slot, err.regs)
}

type emptySlotError struct {
	engineErr
	slot Slot
}

func (err *emptySlotError) Error() string {
	return fmt.Sprintf("slot %s read before it was written: %s", err.slot, err.regs)
}

type badHeapAddrError struct {
	engineErr
	addr Addr
}

func (err *badHeapAddrError) Error() string {
	return fmt.Sprintf("dangling heap address %d (hp %d): %s", err.addr, err.regs.HP, err.regs)
}

type stepLimitError struct {
	engineErr
	limit int
}

func (err *stepLimitError) Error() string {
	return fmt.Sprintf("step limit reached (%d): %s", err.limit, err.regs)
}

type engineStateError struct {
	op     string
	status Status
}

func (err *engineStateError) Error() string {
	return "cannot " + err.op + " while engine is " + err.status.String()
}

type unknownLabelError struct {
	label string
}

func (err *unknownLabelError) Error() string {
	return "undefined label: " + err.label
}

type unknownEntryError struct {
	label string
}

func (err *unknownEntryError) Error() string {
	return "undefined entry point: " + err.label
}
