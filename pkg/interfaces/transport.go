package interfaces

import "github.com/ledgercore/node/pkg/types"

// MessageKind enumerates the frame payload kinds the router dispatches on.
type MessageKind uint8

const (
	KindTransactions MessageKind = iota
	KindTransactionPacket
	KindTransactionsPacketRequest
	KindTransactionsPacketReply
	KindNewBlock
	KindNewBadBlock
	KindBlockRequest
	KindRequestedBlock
	KindBlockHash
	KindConsVector
	KindConsMatrix
	KindConsVectorRequest
	KindConsMatrixRequest
	KindConsTLRequest
	KindFirstStage
	KindFirstStageRequest
	KindSecondStage
	KindSecondStageRequest
	KindThirdStage
	KindThirdStageRequest
	KindRoundTable
	KindRoundInfo
	KindRoundInfoRequest
	KindRoundInfoReply
	KindBigBang
	KindNewCharacteristic
	KindWriterNotification
	KindRoundTableRequest
)

// FrameFlags is the bitmask carried at offset 0 of every frame.
type FrameFlags uint8

const (
	FlagNetworkMsg FrameFlags = 1 << iota
	FlagFragmented
	FlagBroadcast
	FlagCompressed
	FlagEncrypted
	FlagSigned
	FlagNeighbours
)

// Frame is a fully decoded, reassembled and decompressed message ready for
// routing. Fragment reassembly and decompression are transport concerns;
// the core only ever sees Frame values.
type Frame struct {
	Flags     FrameFlags
	ID        uint64
	Sender    types.PublicKey
	Addressee *types.PublicKey
	Kind      MessageKind
	Round     types.RoundNumber
	Payload   []byte
}

// Transport is the collaborator the core drives message delivery through.
// It owns fragmentation, compression, encryption and the neighbor set.
type Transport interface {
	Send(frame Frame, addressee types.PublicKey) error
	Broadcast(frame Frame) error
	Neighbors() []types.PublicKey
	NeighborCount() int
	NeighborCountWithoutSS() int
	NeighborByIndex(i int) (types.PublicKey, bool)
	ProcessPostponed(round types.RoundNumber)
	ClearTasks()
}

// MaxFragmentSize and MaxFragments bound a single message's on-wire framing.
const (
	MaxFragmentSize = 1024
	MaxFragments    = 4096
)
