package serial_test

import (
	"errors"
	"fmt"

	"github.com/ssargent/bl4serial/pkg/serial"
)

// ExampleDecode shows reading the fields of a weapon serial
func ExampleDecode() {
	item := serial.Decode("@Ugr$Q9m/$Qa!a%H`NgZl^aX^(?UrYc")

	fmt.Println(item.ItemType, item.Category, item.Confidence)
	fmt.Println("level:", *item.Stats.Level)
	fmt.Println("rarity:", serial.Rarity(*item.Stats.Rarity))

	// Output:
	// r weapon high
	// level: 16
	// rarity: Legendary
}

// ExampleEncode shows a single stat edit
func ExampleEncode() {
	item := serial.Decode("@Ugr$Q9m/$Qa!a%H`NgZl^aX^(?UrYc")
	item.Stats.PrimaryStat = serial.Int(1200)

	out, err := serial.Encode(item)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(out)
	fmt.Println(*serial.Decode(out).Stats.PrimaryStat)

	// Output:
	// @Ugr$Pj</$Qa!a%H`NgZl^aX^(?UrYc
	// 1200
}

// ExampleCodec_Encode_poolNibble shows the one error Encode returns
func ExampleCodec_Encode_poolNibble() {
	codec := serial.NewCodec(serial.CodecConfig{})

	item := codec.Decode("@Ugr$Q9m/F`5Qa!a%H`NgZl^aX^(?UrYc")
	item.Regions.Pool.Nibble = "3"

	_, err := codec.Encode(item)
	fmt.Println(errors.Is(err, serial.ErrPoolNibbleMismatch))

	// Output:
	// true
}

// ExampleDecode_errorSentinel shows how malformed input is reported
func ExampleDecode_errorSentinel() {
	item := serial.Decode("not-a-real-serial")
	fmt.Println(item.ItemType, item.Confidence, item.Editable())

	// Output:
	// error none false
}
