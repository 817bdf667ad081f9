package peer

import (
	"github.com/quantumgate/quantumgate/crypto"
	"github.com/quantumgate/quantumgate/kex"
	"github.com/quantumgate/quantumgate/keyset"
)

// kexRound is the working state of whichever key-exchange round is
// currently in flight — the initial handshake, or a later key update
// (spec.md §4.2, §4.5). A Session holds at most one; it is created when
// the round starts and discarded once its derived keys are installed.
type kexRound struct {
	// keyUpdate is true when this round is a post-Ready key update
	// rather than the initial handshake; it selects the HKDF epoch
	// string suffix and which side's primary pair gets the
	// decrypt-only-then-activate treatment (spec.md §4.2: only the
	// initial primary leg gets that treatment — a key update's new pair
	// is usable for both directions immediately, since by then the
	// session is already authenticated and past the bootstrap window).
	keyUpdate bool

	chosen kex.ChosenAlgorithms

	primary   *kex.PrimaryLeg
	secondary *kex.SecondaryLeg

	// aliceKeyPair is Alice's static secondary-leg key pair. Bob has no
	// equivalent field: he holds no static key for that leg (spec.md
	// §4.2).
	aliceKeyPair *crypto.KeyPair

	// primaryData and secondaryData are each side's own view of its two
	// completed key-exchange legs; handshake.Transcript builds the
	// signed transcript directly from these rather than from the raw
	// wire blobs, since LocalPublicKey/PeerPublicKey/SharedSecret
	// already carry everything the transcript needs (spec.md §4.2).
	primaryData   keyset.AsymmetricKeyData
	secondaryData keyset.AsymmetricKeyData

	// installedPrimaryPair is the initial handshake's primary symmetric
	// pair, held back from encryption use until the handshake reaches
	// Ready (spec.md §4.2: a pair derived before Authentication
	// completes must not be trusted for sending until both sides have
	// proven identity). Nil once reactivated, and always nil for a
	// key-update round, which has no such bootstrap window.
	installedPrimaryPair *keyset.SymmetricKeyPair

	// keysInstalled guards against re-deriving and re-inserting the
	// symmetric pairs a second time if a retried message arrives after
	// this round has already completed its installation step.
	keysInstalled bool
}
