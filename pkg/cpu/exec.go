package cpu

import (
	"gochip8/pkg/memory"
	"gochip8/pkg/opcode"
)

type handler func(c *CPU, upper, lower byte) error

// handlers is indexed by opcode. Each entry runs after PC has already been
// advanced past the instruction.
var handlers = [opcode.Count]handler{
	opcode.Exit:    (*CPU).exit,
	opcode.Sys:     (*CPU).sys,
	opcode.Cls:     (*CPU).cls,
	opcode.Ret:     (*CPU).ret,
	opcode.Jp:      (*CPU).jp,
	opcode.Call:    (*CPU).call,
	opcode.SeImm:   (*CPU).seImm,
	opcode.SneImm:  (*CPU).sneImm,
	opcode.SeReg:   (*CPU).seReg,
	opcode.LdImm:   (*CPU).ldImm,
	opcode.AddImm:  (*CPU).addImm,
	opcode.LdReg:   (*CPU).ldReg,
	opcode.Or:      (*CPU).or,
	opcode.And:     (*CPU).and,
	opcode.Xor:     (*CPU).xor,
	opcode.AddReg:  (*CPU).addReg,
	opcode.Sub:     (*CPU).sub,
	opcode.Shr:     (*CPU).shr,
	opcode.Subn:    (*CPU).subn,
	opcode.Shl:     (*CPU).shl,
	opcode.SneReg:  (*CPU).sneReg,
	opcode.LdI:     (*CPU).ldI,
	opcode.JpV0:    (*CPU).jpV0,
	opcode.Rnd:     (*CPU).rnd,
	opcode.Drw:     (*CPU).drw,
	opcode.Skp:     (*CPU).skp,
	opcode.Sknp:    (*CPU).sknp,
	opcode.LdVxDT:  (*CPU).ldVxDT,
	opcode.LdVxK:   (*CPU).ldVxK,
	opcode.LdDTVx:  (*CPU).ldDTVx,
	opcode.LdSTVx:  (*CPU).ldSTVx,
	opcode.AddIVx:  (*CPU).addIVx,
	opcode.LdFVx:   (*CPU).ldFVx,
	opcode.LdBVx:   (*CPU).ldBVx,
	opcode.LdMemVx: (*CPU).ldMemVx,
	opcode.LdVxMem: (*CPU).ldVxMem,
}

func argX(upper, lower byte) byte {
	return byte(opcode.Arg(opcode.ArgX, upper, lower))
}

func argY(upper, lower byte) byte {
	return byte(opcode.Arg(opcode.ArgY, upper, lower))
}

func argAddr(upper, lower byte) uint16 {
	return opcode.Arg(opcode.ArgAddress, upper, lower)
}

func argConst(upper, lower byte) byte {
	return byte(opcode.Arg(opcode.ArgConstant, upper, lower))
}

func argNibble(upper, lower byte) byte {
	return byte(opcode.Arg(opcode.ArgNibble, upper, lower))
}

func (c *CPU) skipIf(cond bool) {
	if cond {
		c.PC += 2
	}
}

// setWithFlag stores result in VX and then the flag in VF, so a flag
// computed from the original operands survives when X is F.
func (c *CPU) setWithFlag(x, result byte, flag bool) {
	c.V[x] = result
	if flag {
		c.V[FlagRegister] = 1
	} else {
		c.V[FlagRegister] = 0
	}
}

func (c *CPU) exit(_, _ byte) error {
	c.Halted = true
	return nil
}

// 0nnn machine routines are not available.
func (c *CPU) sys(_, _ byte) error {
	return nil
}

func (c *CPU) cls(_, _ byte) error {
	c.Display = [DisplaySize]byte{}
	c.Dirty = true
	return nil
}

func (c *CPU) ret(_, _ byte) error {
	if c.SP == 0 {
		return ErrStackUnderflow
	}
	c.SP--
	c.PC = c.Stack[c.SP]
	return nil
}

func (c *CPU) jp(upper, lower byte) error {
	c.PC = argAddr(upper, lower)
	return nil
}

// call pushes PC, which already points at the instruction after the call.
func (c *CPU) call(upper, lower byte) error {
	if int(c.SP) >= StackSize {
		return ErrStackOverflow
	}
	c.Stack[c.SP] = c.PC
	c.SP++
	c.PC = argAddr(upper, lower)
	return nil
}

func (c *CPU) seImm(upper, lower byte) error {
	c.skipIf(c.V[argX(upper, lower)] == argConst(upper, lower))
	return nil
}

func (c *CPU) sneImm(upper, lower byte) error {
	c.skipIf(c.V[argX(upper, lower)] != argConst(upper, lower))
	return nil
}

func (c *CPU) seReg(upper, lower byte) error {
	c.skipIf(c.V[argX(upper, lower)] == c.V[argY(upper, lower)])
	return nil
}

func (c *CPU) sneReg(upper, lower byte) error {
	c.skipIf(c.V[argX(upper, lower)] != c.V[argY(upper, lower)])
	return nil
}

func (c *CPU) ldImm(upper, lower byte) error {
	c.V[argX(upper, lower)] = argConst(upper, lower)
	return nil
}

// 7xnn wraps and leaves VF alone.
func (c *CPU) addImm(upper, lower byte) error {
	c.V[argX(upper, lower)] += argConst(upper, lower)
	return nil
}

func (c *CPU) ldReg(upper, lower byte) error {
	c.V[argX(upper, lower)] = c.V[argY(upper, lower)]
	return nil
}

func (c *CPU) or(upper, lower byte) error {
	c.V[argX(upper, lower)] |= c.V[argY(upper, lower)]
	return nil
}

func (c *CPU) and(upper, lower byte) error {
	c.V[argX(upper, lower)] &= c.V[argY(upper, lower)]
	return nil
}

func (c *CPU) xor(upper, lower byte) error {
	c.V[argX(upper, lower)] ^= c.V[argY(upper, lower)]
	return nil
}

func (c *CPU) addReg(upper, lower byte) error {
	x, y := argX(upper, lower), argY(upper, lower)
	sum := uint16(c.V[x]) + uint16(c.V[y])
	c.setWithFlag(x, byte(sum), sum > 0xFF)
	return nil
}

func (c *CPU) sub(upper, lower byte) error {
	x, y := argX(upper, lower), argY(upper, lower)
	vx, vy := c.V[x], c.V[y]
	c.setWithFlag(x, vx-vy, vx >= vy)
	return nil
}

func (c *CPU) subn(upper, lower byte) error {
	x, y := argX(upper, lower), argY(upper, lower)
	vx, vy := c.V[x], c.V[y]
	c.setWithFlag(x, vy-vx, vy >= vx)
	return nil
}

// Shifts operate on VX in place; the Y field is ignored.
func (c *CPU) shr(upper, lower byte) error {
	x := argX(upper, lower)
	vx := c.V[x]
	c.setWithFlag(x, vx>>1, vx&0x01 != 0)
	return nil
}

func (c *CPU) shl(upper, lower byte) error {
	x := argX(upper, lower)
	vx := c.V[x]
	c.setWithFlag(x, vx<<1, vx&0x80 != 0)
	return nil
}

func (c *CPU) ldI(upper, lower byte) error {
	c.I = argAddr(upper, lower)
	return nil
}

func (c *CPU) jpV0(upper, lower byte) error {
	c.PC = argAddr(upper, lower) + uint16(c.V[0])
	return nil
}

func (c *CPU) rnd(upper, lower byte) error {
	c.V[argX(upper, lower)] = byte(c.rng.UintN(256)) & argConst(upper, lower)
	return nil
}

// drw XORs an n-row sprite from I at (VX, VY). All rows are read before the
// framebuffer is touched so a bad address leaves the display unchanged.
func (c *CPU) drw(upper, lower byte) error {
	x0 := int(c.V[argX(upper, lower)])
	y0 := int(c.V[argY(upper, lower)])
	height := int(argNibble(upper, lower))

	rows := make([]byte, height)
	for row := range rows {
		b, err := c.mem.Read(c.I + uint16(row))
		if err != nil {
			return err
		}
		rows[row] = b
	}

	collision := false
	for row, bits := range rows {
		for col := 0; col < 8; col++ {
			if bits&(0x80>>col) == 0 {
				continue
			}
			idx := pixelIndex(x0+col, y0+row)
			if c.Display[idx] == 1 {
				collision = true
			}
			c.Display[idx] ^= 1
		}
	}

	if collision {
		c.V[FlagRegister] = 1
	} else {
		c.V[FlagRegister] = 0
	}
	c.Dirty = true
	return nil
}

func (c *CPU) skp(upper, lower byte) error {
	c.skipIf(c.Keys[c.V[argX(upper, lower)]&0x0F])
	return nil
}

func (c *CPU) sknp(upper, lower byte) error {
	c.skipIf(!c.Keys[c.V[argX(upper, lower)]&0x0F])
	return nil
}

func (c *CPU) ldVxDT(upper, lower byte) error {
	c.V[argX(upper, lower)] = c.DT
	return nil
}

// ldVxK stores the lowest pressed key. With no key down the instruction is
// executed again on the next step.
func (c *CPU) ldVxK(upper, lower byte) error {
	for k, down := range c.Keys {
		if down {
			c.V[argX(upper, lower)] = byte(k)
			return nil
		}
	}
	c.PC -= 2
	return nil
}

func (c *CPU) ldDTVx(upper, lower byte) error {
	c.DT = c.V[argX(upper, lower)]
	return nil
}

func (c *CPU) ldSTVx(upper, lower byte) error {
	c.ST = c.V[argX(upper, lower)]
	return nil
}

func (c *CPU) addIVx(upper, lower byte) error {
	c.I += uint16(c.V[argX(upper, lower)])
	return nil
}

func (c *CPU) ldFVx(upper, lower byte) error {
	c.I = memory.GlyphAddress(c.V[argX(upper, lower)])
	return nil
}

func (c *CPU) ldBVx(upper, lower byte) error {
	v := c.V[argX(upper, lower)]
	return c.store(c.I, []byte{v / 100, v / 10 % 10, v % 10})
}

// ldMemVx stores V0..VX starting at I. I is left unchanged.
func (c *CPU) ldMemVx(upper, lower byte) error {
	x := argX(upper, lower)
	return c.store(c.I, c.V[:x+1])
}

// ldVxMem loads V0..VX from I. I is left unchanged.
func (c *CPU) ldVxMem(upper, lower byte) error {
	x := argX(upper, lower)
	buf := make([]byte, x+1)
	for i := range buf {
		b, err := c.mem.Read(c.I + uint16(i))
		if err != nil {
			return err
		}
		buf[i] = b
	}
	copy(c.V[:], buf)
	return nil
}

// store writes data at addr only if the whole window is writable.
func (c *CPU) store(addr uint16, data []byte) error {
	for i := range data {
		if !c.mem.Valid(addr + uint16(i)) {
			return &memory.AccessError{Op: "write", Addr: addr + uint16(i)}
		}
	}
	for i, b := range data {
		if err := c.mem.Write(addr+uint16(i), b); err != nil {
			return err
		}
	}
	return nil
}
