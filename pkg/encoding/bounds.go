package encoding

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"reflect"
)

var bigIntType = reflect.TypeOf(big.Int{})

// boundsChecker walks data with the same layout rules the decoder follows and fails
// on the first length prefix that claims more bytes than remain. The decoder sizes
// string buffers from the prefix alone, so this has to run first.
type boundsChecker struct {
	data []byte
	off  int
}

func checkBounds(t reflect.Type, data []byte) error {
	c := &boundsChecker{data: data}
	return c.walk(t)
}

func (c *boundsChecker) remaining() int {
	return len(c.data) - c.off
}

func (c *boundsChecker) skip(n int) error {
	if n < 0 || n > c.remaining() {
		return fmt.Errorf("need %d bytes at offset %d, %d left", n, c.off, c.remaining())
	}
	c.off += n
	return nil
}

// length reads a u32 prefix counting items of at least one byte each
func (c *boundsChecker) length() (int, error) {
	if c.remaining() < 4 {
		return 0, fmt.Errorf("truncated length prefix at offset %d", c.off)
	}
	n := int(binary.LittleEndian.Uint32(c.data[c.off:]))
	c.off += 4
	if n > c.remaining() {
		return 0, fmt.Errorf("length %d at offset %d exceeds the %d bytes left", n, c.off-4, c.remaining())
	}
	return n, nil
}

func (c *boundsChecker) walk(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return c.skip(1)
	case reflect.Int16, reflect.Uint16:
		return c.skip(2)
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return c.skip(4)
	case reflect.Int64, reflect.Uint64, reflect.Int, reflect.Uint, reflect.Float64:
		return c.skip(8)
	case reflect.String:
		n, err := c.length()
		if err != nil {
			return err
		}
		return c.skip(n)
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return c.skip(t.Len())
		}
		for i := 0; i < t.Len(); i++ {
			if err := c.walk(t.Elem()); err != nil {
				return err
			}
		}
		return nil
	case reflect.Slice:
		n, err := c.length()
		if err != nil {
			return err
		}
		if t.Elem().Kind() == reflect.Uint8 {
			return c.skip(n)
		}
		for i := 0; i < n; i++ {
			if err := c.walk(t.Elem()); err != nil {
				return err
			}
		}
		return nil
	case reflect.Ptr:
		if c.remaining() < 1 {
			return fmt.Errorf("truncated option at offset %d", c.off)
		}
		present := c.data[c.off]
		c.off++
		if present == 0 {
			return nil
		}
		return c.walk(t.Elem())
	case reflect.Struct:
		return c.walkStruct(t)
	}
	return fmt.Errorf("unsupported type %s", t)
}

func (c *boundsChecker) walkStruct(t reflect.Type) error {
	if t == bigIntType {
		return c.skip(16)
	}
	if t.NumField() > 0 {
		first := t.Field(0)
		if first.Type.Kind() == reflect.Uint8 && first.Tag.Get("borsh_enum") == "true" {
			if c.remaining() < 1 {
				return fmt.Errorf("truncated enum tag at offset %d", c.off)
			}
			variant := int(c.data[c.off])
			c.off++
			if variant+1 >= t.NumField() {
				return fmt.Errorf("unknown %s variant %d", t.Name(), variant)
			}
			return c.walk(t.Field(variant + 1).Type)
		}
	}
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("borsh_skip") == "true" {
			continue
		}
		if err := c.walk(t.Field(i).Type); err != nil {
			return err
		}
	}
	return nil
}
