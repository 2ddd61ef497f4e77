package codec

import "fmt"

// Key builders match the literal encodings spec.md §4.B lists per
// sub-store. Zero-padding history versions to 12 digits keeps a prefix
// range scan over history/{id}/ in ascending version order without a
// secondary sort.
const historyVersionWidth = 12

func TodoKey(id string) string {
	return id
}

func HistoryKey(id string, version int) string {
	return fmt.Sprintf("%s/%0*d", id, historyVersionWidth, version)
}

func HistoryPrefix(id string) string {
	return id + "/"
}

func BlocksKey(parent, child string) string {
	return fmt.Sprintf("blocks/%s/%s", parent, child)
}

func BlocksPrefixForParent(parent string) string {
	return fmt.Sprintf("blocks/%s/", parent)
}

func PendingKey(agent, id string) string {
	return fmt.Sprintf("%s/%s", agent, id)
}

func PendingPrefixForAgent(agent string) string {
	return agent + "/"
}

func ConflictKey(id string, seq int) string {
	return fmt.Sprintf("conflict/%s/%0*d", id, historyVersionWidth, seq)
}

func ConflictPrefixForTodo(id string) string {
	return fmt.Sprintf("conflict/%s/", id)
}

func AgentKey(name string) string {
	return fmt.Sprintf("agent/%s", name)
}

const AgentPrefix = "agent/"

const CounterTodoIDKey = "counter/todo_id"
