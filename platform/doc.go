// Package platform binds the node to real or simulated hardware. Host
// builds get fake pins and an emulated card; rp2040 builds configure the
// SPI bus, band lines, LEDs, ADC and console UART of a boards.Board.
package platform
