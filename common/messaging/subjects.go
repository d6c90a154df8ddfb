// Package messaging defines standard subject and header names for the packet log.
package messaging

import "strconv"

// Subject constants.
// Follow the pattern: {domain}.{action}.{resource}
const (
	// SubjectBehovPacket is the shared packet topic; partitions live at SubjectBehovPacket.{n}
	SubjectBehovPacket = "dagpenger.behov.packet"

	// SubjectDatalasterDLQ prefixes dead-lettered messages (append .{reason})
	SubjectDatalasterDLQ = "datalaster.dlq.packet"
)

// Header names carried on packet messages.
const (
	HeaderPacketKey      = "Packet-Key"       // Partitioning key chosen by the producer
	HeaderPacketID       = "Packet-Id"        // Correlation id for one processing pass
	HeaderParentPacketID = "Parent-Packet-Id" // Packet-Id of the message this one was derived from
	HeaderState          = "Datalaster-State" // Packet state after this stage ran
	HeaderProducer       = "Producer"         // Name of the stage that appended the message
)

// PartitionSubject returns the subject for one partition of a topic.
// Example: dagpenger.behov.packet.3
func PartitionSubject(topic string, partition int) string {
	return topic + "." + strconv.Itoa(partition)
}

// WildcardSubject returns the subject filter matching every partition of a topic.
func WildcardSubject(topic string) string {
	return topic + ".>"
}

// DLQSubject returns the dead-letter subject for a failure reason.
func DLQSubject(reason string) string {
	return SubjectDatalasterDLQ + "." + reason
}
