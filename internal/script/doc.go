// Package script runs choreography scripts written in Lua.
//
// A script is executed once, synchronously, in a fresh Lua state whose only
// capability is a global "robot" table bound to one routine.Routine. The
// script records intentions: it enqueues actions and registers handlers.
// Registered handler functions are called later, one at a time, when the
// routine runs its start or button handlers.
//
// Example script:
//
//	robot.say("hello")
//
//	robot.when_started(function()
//	    robot.in_sync(function()
//	        robot.set_antenna_state("both", "on")
//	        robot.move_arm("left", "up")
//	    end)
//	    robot.wait(1)
//	    robot.roll("forward", 2)
//	end)
//
//	robot.when_button_pressed(1, function()
//	    robot.turn("clockwise", 0.5)
//	end)
//
// Only the base, table, string and math libraries are opened, with the
// file-loading functions removed. print writes to the daemon log.
package script
