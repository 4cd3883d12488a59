package status

import "fmt"

// Console prints session updates to stdout for the operator running the
// daemon in a terminal.
type Console struct{}

func (Console) PushState(state, detail string) {
	if detail != "" {
		fmt.Printf("🔵 Connection: %s (%s)\n", state, detail)
		return
	}
	fmt.Printf("🔵 Connection: %s\n", state)
}

func (Console) PushPairingCode(code string) {
	fmt.Println()
	fmt.Println("▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬")
	fmt.Println("     🟢 YOUR PAIRING CODE IS BELOW 🟢")
	fmt.Printf("     👉  %s  👈\n", code)
	fmt.Println("▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬")
	fmt.Println("⚠️  Enter this in WhatsApp within about 2 minutes.")
	fmt.Println()
}
